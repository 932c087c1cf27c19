package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mymmrac/telego"
)

// sentDocument is a SendDocument call with its upload read out.
type sentDocument struct {
	params *telego.SendDocumentParams
	name   string
	data   []byte
}

// fakeAPI implements api against an in-memory file table served over httptest.
type fakeAPI struct {
	server *httptest.Server

	mu        sync.Mutex
	files     map[string]*telego.File
	contents  map[string][]byte
	getFiles  int
	documents []sentDocument
	messages  []*telego.SendMessageParams
	nextID    int
	sendErr   error
	getErr    error
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		files:    map[string]*telego.File{},
		contents: map[string][]byte{},
		nextID:   1000,
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		data, ok := f.contents[strings.TrimPrefix(r.URL.Path, "/file/")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(f.server.Close)
	return f
}

// addFile registers a file id whose download path serves data.
func (f *fakeAPI) addFile(id string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := "documents/" + id
	f.files[id] = &telego.File{FileID: id, FilePath: path, FileSize: int64(len(data))}
	f.contents[path] = data
}

func (f *fakeAPI) GetFile(_ context.Context, params *telego.GetFileParams) (*telego.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getFiles++
	if f.getErr != nil {
		return nil, f.getErr
	}
	file, ok := f.files[params.FileID]
	if !ok {
		return nil, errors.New("telego: getFile: api: 400 \"Bad Request: invalid file_id\"")
	}
	return file, nil
}

func (f *fakeAPI) FileDownloadURL(filepath string) string {
	return f.server.URL + "/file/" + filepath
}

func (f *fakeAPI) SendDocument(_ context.Context, params *telego.SendDocumentParams) (*telego.Message, error) {
	var doc sentDocument
	doc.params = params
	if params.Document.File != nil {
		doc.name = params.Document.File.Name()
		doc.data, _ = io.ReadAll(params.Document.File)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.documents = append(f.documents, doc)
	f.nextID++
	return &telego.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, params)
	f.nextID++
	return &telego.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) sentDocuments() []sentDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentDocument(nil), f.documents...)
}

func (f *fakeAPI) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		texts = append(texts, m.Text)
	}
	return texts
}

func (f *fakeAPI) getFileCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getFiles
}

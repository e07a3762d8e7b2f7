// Command sample demonstrates the github.com/illuscio-dev/span framework
// with a small book-archive API covering every major feature.
//
// Run:
//
//	go run ./cmd/sample
//
// Generate the OpenAPI spec:
//
//	go run ./cmd/sample -spec                        — print to stdout
//	go run ./cmd/sample -spec -o openapi.json        — write to file
//
// Then explore:
//
//	GET    http://localhost:8080/openapi.json               — OpenAPI spec (JSON)
//	GET    http://localhost:8080/openapi.yaml               — OpenAPI spec (YAML)
//	GET    http://localhost:8080/docs                        — interactive docs
//	GET    http://localhost:8080/books                       — paged list (try ?paging-offset=2&paging-limit=2)
//	GET    http://localhost:8080/books?project.title=1       — projected list
//	POST   http://localhost:8080/books                       — create book
//	GET    http://localhost:8080/books/{id}                  — get book
//	PUT    http://localhost:8080/books/{id}                  — update book
//	DELETE http://localhost:8080/books/{id}                  — delete book
//	POST   http://localhost:8080/books/check                 — validate without loading
//	GET    http://localhost:8080/books/export                — pre-encoded passthrough
//	GET    http://localhost:8080/books/{id}/summary          — plain-text response
//
// Request and accept BSON or YAML by setting Content-Type / Accept, or CSV
// via the custom codec registered below.
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/illuscio-dev/span"
)

func main() {
	specFlag := flag.Bool("spec", false, "Print the OpenAPI spec to stdout and exit")
	outFlag := flag.String("o", "", "Output file for the spec (requires -spec)")
	flag.Parse()

	r := newRouter()

	if *specFlag {
		if err := writeSpec(r, *outFlag); err != nil {
			slog.Error("spec generation failed", "err", err)
			os.Exit(1)
		}
		return
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting server", "addr", ":8080", "docs", "http://localhost:8080/docs")

	if err := r.ListenAndServe(ctx, ":8080"); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
	}

	slog.Info("server stopped")
}

// errBookNotFound is the custom error kind for missing books. Its name,
// code, and id travel back to the client in the error-* headers.
var errBookNotFound = span.NewErrorKind("BookNotFoundError", http.StatusNotFound, 2000)

func newRouter() *span.Router {
	r := span.New(
		span.WithTitle("Book Archive"),
		span.WithVersion("1.0.0"),
	)

	r.RegisterMimeType(csvCodec{}, csvCodec{})

	r.Use(span.RequestID())
	r.Use(span.Logger(slog.Default()))
	r.Use(span.Recovery())
	r.Use(span.RateLimit(span.RateLimitConfig{Rate: 50, Burst: 100}))
	r.Use(span.BodyLimit(1 << 20))
	r.Use(span.Timeout(30 * time.Second))

	r.ServeSpec("/openapi.json")
	r.ServeSpecYAML("/openapi.yaml")
	r.ServeDocs("/docs", span.WithDocsSpecURL("/openapi.json"))

	span.Get(r, "/books", handleListBooks,
		span.WithSummary("List books"),
		span.WithDescription("Returns the archive one page at a time. Supports projection."),
		span.WithTags("books"),
		span.WithPaging(10),
	)
	span.Post(r, "/books", handleCreateBook,
		span.WithStatus(http.StatusCreated),
		span.WithSummary("Create book"),
		span.WithTags("books"),
	)
	span.Get(r, "/books/export", handleExportBooks,
		span.WithSummary("Export books"),
		span.WithDescription("Streams a pre-encoded snapshot without re-validating it."),
		span.WithTags("books"),
		span.WithRespDump(span.DumpIgnore),
	)
	span.Post(r, "/books/check", handleCheckBook,
		span.WithSummary("Check a book record"),
		span.WithDescription("Validates the payload without binding it to a typed request."),
		span.WithTags("books"),
		span.WithReqLoad(span.LoadValidateOnly),
	)
	span.Get(r, "/books/{id}", handleGetBook,
		span.WithSummary("Get book"),
		span.WithTags("books"),
		span.WithErrorKinds(errBookNotFound),
	)
	span.Put(r, "/books/{id}", handleUpdateBook,
		span.WithSummary("Update book"),
		span.WithTags("books"),
		span.WithErrorKinds(errBookNotFound),
	)
	span.Delete(r, "/books/{id}", handleDeleteBook,
		span.WithSummary("Delete book"),
		span.WithTags("books"),
		span.WithErrorKinds(errBookNotFound),
	)
	span.Get(r, "/books/{id}/summary", handleBookSummary,
		span.WithSummary("Book summary"),
		span.WithDescription("Returns a one-line plain-text summary of the book."),
		span.WithTags("books"),
		span.WithTextMedia(),
		span.WithErrorKinds(errBookNotFound),
	)

	return r
}

func writeSpec(r *span.Router, outFile string) error {
	w := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile) //nolint:gosec // user-provided CLI flag
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				slog.Error("failed to close output file", "err", err)
			}
		}()
		w = f
	}
	return r.WriteSpec(w)
}

// In-memory store
// ---------------------------------------------------------------------------

var store = newBookStore()

type bookStore struct {
	mu    sync.RWMutex
	books map[uuid.UUID]*Book
}

func newBookStore() *bookStore {
	s := &bookStore{books: map[uuid.UUID]*Book{}}
	for _, b := range []Book{
		{Title: "At the Mountains of Madness", Author: "H.P. Lovecraft", Pages: 176},
		{Title: "The King in Yellow", Author: "R.W. Chambers", Pages: 316},
		{Title: "The House on the Borderland", Author: "W.H. Hodgson", Pages: 208},
	} {
		b.ID = uuid.New()
		b.CreatedAt = time.Now()
		s.books[b.ID] = &b
	}
	return s
}

func (s *bookStore) list() []Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (s *bookStore) get(id uuid.UUID) (*Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, false
	}
	cp := *b
	return &cp, true
}

func (s *bookStore) create(title, author string, pages int) *Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &Book{
		ID:        uuid.New(),
		Title:     title,
		Author:    author,
		Pages:     pages,
		CreatedAt: time.Now(),
	}
	s.books[b.ID] = b
	cp := *b
	return &cp
}

func (s *bookStore) update(id uuid.UUID, title, author string, pages int) (*Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, false
	}
	if title != "" {
		b.Title = title
	}
	if author != "" {
		b.Author = author
	}
	if pages > 0 {
		b.Pages = pages
	}
	cp := *b
	return &cp, true
}

func (s *bookStore) delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return false
	}
	delete(s.books, id)
	return true
}

// Domain types
// ---------------------------------------------------------------------------

// Book is the core domain entity.
type Book struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Pages     int       `json:"pages"`
	CreatedAt time.Time `json:"created_at"`
}

// Request / Response types
// ---------------------------------------------------------------------------

type CreateBookReq struct {
	Title  string `json:"title" validate:"required" doc:"Book title"`
	Author string `json:"author" validate:"required" doc:"Author name"`
	Pages  int    `json:"pages" validate:"gte=0" doc:"Page count"`
}

type BookByIDReq struct {
	ID uuid.UUID `path:"id" doc:"Book ID"`
}

type UpdateBookReq struct {
	ID   uuid.UUID `path:"id" doc:"Book ID"`
	Body struct {
		Title  string `json:"title" doc:"Book title"`
		Author string `json:"author" doc:"Author name"`
		Pages  int    `json:"pages" validate:"gte=0" doc:"Page count"`
	}
}

type CheckBookResp struct {
	Valid  bool     `json:"valid"`
	Fields []string `json:"fields"`
}

// Handlers
// ---------------------------------------------------------------------------

func handleListBooks(ctx context.Context, _ *span.Void) (*[]Book, error) {
	books := store.list()

	paging, _ := span.PagingFromContext(ctx)
	paging.TotalItems = len(books)

	if paging.Offset >= len(books) {
		books = nil
	} else {
		books = books[paging.Offset:]
	}
	if paging.Limit < len(books) {
		books = books[:paging.Limit]
	}

	return &books, nil
}

func handleCreateBook(_ context.Context, req *CreateBookReq) (*Book, error) {
	return store.create(req.Title, req.Author, req.Pages), nil
}

func handleGetBook(_ context.Context, req *BookByIDReq) (*Book, error) {
	book, ok := store.get(req.ID)
	if !ok {
		return nil, errBookNotFound.Newf("no book with id %s", req.ID)
	}
	return book, nil
}

func handleUpdateBook(_ context.Context, req *UpdateBookReq) (*Book, error) {
	book, ok := store.update(req.ID, req.Body.Title, req.Body.Author, req.Body.Pages)
	if !ok {
		return nil, errBookNotFound.Newf("no book with id %s", req.ID)
	}
	return book, nil
}

func handleDeleteBook(_ context.Context, req *BookByIDReq) (*span.Void, error) {
	if !store.delete(req.ID) {
		return nil, errBookNotFound.Newf("no book with id %s", req.ID)
	}
	return &span.Void{}, nil
}

// handleCheckBook runs on a validate-only route: the payload is validated
// against CreateBookReq's rules, but the handler reads the decoded media
// from the context instead of the (unloaded) typed request.
func handleCheckBook(ctx context.Context, _ *CreateBookReq) (*CheckBookResp, error) {
	media, ok := span.Media(ctx)
	if !ok {
		return &CheckBookResp{Valid: false}, nil
	}

	obj, ok := media.(map[string]any)
	if !ok {
		return nil, span.ErrRequestValidation.New("payload must be a single object")
	}

	fields := make([]string, 0, len(obj))
	for key := range obj {
		fields = append(fields, key)
	}
	sort.Strings(fields)

	return &CheckBookResp{Valid: true, Fields: fields}, nil
}

// handleExportBooks returns a pre-encoded JSON snapshot. With DumpIgnore the
// bytes pass through to the client untouched.
func handleExportBooks(_ context.Context, _ *span.Void) (*[]byte, error) {
	data, err := json.Marshal(store.list())
	if err != nil {
		return nil, err
	}
	return &data, nil
}

func handleBookSummary(_ context.Context, req *BookByIDReq) (*string, error) {
	book, ok := store.get(req.ID)
	if !ok {
		return nil, errBookNotFound.Newf("no book with id %s", req.ID)
	}
	summary := fmt.Sprintf("%s by %s (%d pages)", book.Title, book.Author, book.Pages)
	return &summary, nil
}

// Custom codec
// ---------------------------------------------------------------------------

// csvCodec shows how to register an extra content type on a router. It
// handles [][]string tables, which is all the demo needs.
type csvCodec struct{}

func (csvCodec) MimeType() span.MimeType { return span.MimeType("text/csv") }

func (csvCodec) Encode(w io.Writer, v any) error {
	rows, ok := v.([][]string)
	if !ok {
		return fmt.Errorf("csv codec: cannot encode %T", v)
	}
	return csv.NewWriter(w).WriteAll(rows)
}

func (csvCodec) Decode(data []byte, v any) error {
	target, ok := v.(*[][]string)
	if !ok {
		return fmt.Errorf("csv codec: cannot decode into %T", v)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return err
	}
	*target = rows
	return nil
}

// Package httperr turns handler failures into the two user-visible error
// responses: a static 404 document and a 500 page whose diagnostic section is
// only filled outside production.
package httperr

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ofcrse/site/internal/logger"
)

const (
	NotFoundFile = "404.html"
	InternalFile = "500.html"

	// Marker is replaced by the rendered diagnostic in the 500 template.
	Marker = "{{error}}"
)

// ErrNotFound is returned by handlers for a deliberate 404. It is never logged.
var ErrNotFound = errors.New("not found")

// HandlerFunc is an http handler that reports failures instead of writing them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Presenter holds both error documents in memory for the process lifetime.
type Presenter struct {
	notFound   []byte
	internal   string
	production bool
	log        logger.Logger
}

// New builds a presenter from documents already in memory.
func New(notFound []byte, internalTemplate string, production bool, log logger.Logger) *Presenter {
	return &Presenter{
		notFound:   notFound,
		internal:   internalTemplate,
		production: production,
		log:        log,
	}
}

// Load reads 404.html and 500.html from dir. Both must be regular files and
// the 500 template must contain Marker.
func Load(dir string, production bool, log logger.Logger) (*Presenter, error) {
	notFound, err := readDocument(filepath.Join(dir, NotFoundFile))
	if err != nil {
		return nil, err
	}
	internal, err := readDocument(filepath.Join(dir, InternalFile))
	if err != nil {
		return nil, err
	}
	if !strings.Contains(string(internal), Marker) {
		return nil, fmt.Errorf("error template %s has no %s marker", filepath.Join(dir, InternalFile), Marker)
	}
	return New(notFound, string(internal), production, log), nil
}

func readDocument(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat error page: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("error page %s is not a regular file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read error page: %w", err)
	}
	return data, nil
}

// Handle adapts fn to an http.HandlerFunc, mapping ErrNotFound to the 404
// document and every other error to the 500 page.
func (p *Presenter) Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotFound):
			p.NotFound(w, r)
		default:
			p.Internal(w, r, err)
		}
	}
}

// NotFound writes the cached 404 document.
func (p *Presenter) NotFound(w http.ResponseWriter, r *http.Request) {
	p.write(w, r, http.StatusNotFound, p.notFound)
}

// Internal logs err with its cause and stack, then writes the 500 page.
func (p *Presenter) Internal(w http.ResponseWriter, r *http.Request, err error) {
	fields := []logger.Field{
		logger.Error(err),
		logger.String("root_cause", rootCause(err).Error()),
		logger.String("method", r.Method),
		logger.String("host", r.Host),
		logger.String("path", r.URL.Path),
	}
	if st := deepestStack(err); st != nil {
		fields = append(fields, logger.String("stack", fmt.Sprintf("%+v", st)))
	}
	p.log.Error("http handler error", fields...)

	body := strings.Replace(p.internal, Marker, p.diagnostic(err), 1)
	p.write(w, r, http.StatusInternalServerError, []byte(body))
}

func (p *Presenter) write(w http.ResponseWriter, r *http.Request, status int, body []byte) {
	h := w.Header()
	h.Del("Content-Length")
	h.Del("Content-Encoding")
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body); err != nil {
		p.log.Debug("failed to write error page", logger.Error(err))
	}
}

// diagnostic renders the numbered cause chain and the deepest stack trace,
// HTML-escaped. Production gets nothing.
func (p *Presenter) diagnostic(err error) string {
	if p.production {
		return ""
	}

	var b strings.Builder
	prev := ""
	i := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := ownMessage(e)
		if msg == "" || msg == prev {
			continue
		}
		prev = msg
		i++
		fmt.Fprintf(&b, "%d. %s\n", i, msg)
	}
	if st := deepestStack(err); st != nil {
		fmt.Fprintf(&b, "\n%s", strings.TrimPrefix(fmt.Sprintf("%+v", st), "\n"))
	}
	return html.EscapeString(b.String())
}

// ownMessage strips the wrapped cause's text from a wrapper's message.
func ownMessage(e error) string {
	msg := e.Error()
	if cause := errors.Unwrap(e); cause != nil {
		msg = strings.TrimSuffix(msg, ": "+cause.Error())
		if msg == cause.Error() {
			return ""
		}
	}
	return msg
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func deepestStack(err error) errors.StackTrace {
	var st errors.StackTrace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if tracer, ok := e.(stackTracer); ok {
			st = tracer.StackTrace()
		}
	}
	return st
}

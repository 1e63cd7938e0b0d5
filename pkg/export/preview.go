package export

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/vanderheijden86/treeview/pkg/debug"
)

// PreviewEventsPath is the server-sent events endpoint.
const PreviewEventsPath = "/__preview__/events"

// reloadScript reconnects with backoff and reloads the page on "reload".
const reloadScript = `<script>
(function() {
  if (typeof(EventSource) === 'undefined') return;
  var delay = 1000;
  function connect() {
    var es = new EventSource('` + PreviewEventsPath + `');
    es.addEventListener('connected', function() { delay = 1000; });
    es.addEventListener('reload', function() { location.reload(); });
    es.onerror = function() {
      es.close();
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 30000);
    };
  }
  connect();
})();
</script>`

// Preview serves the HTML export of a tree and tells connected browsers to
// reload whenever Publish installs a new page.
type Preview struct {
	mu      sync.RWMutex
	page    string
	clients map[chan struct{}]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPreview returns a preview serving page.
func NewPreview(page string) *Preview {
	ctx, cancel := context.WithCancel(context.Background())
	return &Preview{
		page:    injectReload(page),
		clients: make(map[chan struct{}]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Publish replaces the page and notifies clients.
func (p *Preview) Publish(page string) {
	p.mu.Lock()
	p.page = injectReload(page)
	p.mu.Unlock()

	p.mu.RLock()
	defer p.mu.RUnlock()
	for ch := range p.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	debug.Log("preview: published page to %d clients", len(p.clients))
}

// ClientCount returns the number of connected event streams.
func (p *Preview) ClientCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// Stop ends every event stream.
func (p *Preview) Stop() {
	p.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.clients {
		close(ch)
	}
	p.clients = make(map[chan struct{}]struct{})
}

// Handler serves the page at / and the event stream.
func (p *Preview) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PreviewEventsPath, p.events)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		p.mu.RLock()
		page := p.page
		p.mu.RUnlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		fmt.Fprint(w, page)
	})
	return mux
}

func (p *Preview) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan struct{}, 1)
	p.mu.Lock()
	p.clients[ch] = struct{}{}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.clients, ch)
		p.mu.Unlock()
	}()

	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-p.ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprint(w, "event: reload\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

func injectReload(page string) string {
	if i := strings.LastIndex(page, "</body>"); i >= 0 {
		return page[:i] + reloadScript + page[i:]
	}
	return page + reloadScript
}

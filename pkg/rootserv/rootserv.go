// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rootserv

import (
	"boilerctl/pkg/logger"
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"time"
)

type subserver struct {
	desc string
}

// RootServer holds a mux and the list of attached sub-handlers.
type RootServer struct {
	log        *logger.Logger
	addr       string
	title      string
	mux        *http.ServeMux
	subservers map[string]subserver
}

// New creates a new RootServer bound to an address.
func New(addr, title string) *RootServer {
	return &RootServer{
		addr:       addr,
		title:      title,
		mux:        http.NewServeMux(),
		subservers: make(map[string]subserver),
		log:        logger.New("HTTPServer"),
	}
}

func normalize(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(path, "/")
}

// Attach registers handler under path. The handler sees URLs with the
// prefix stripped, so it only deals with "/", "/api/..." and the like.
func (ms *RootServer) Attach(path, desc string, handler http.Handler) {
	path = normalize(path)
	ms.log.Info("Attach: %s", path)

	ms.subservers[path] = subserver{desc: desc}
	ms.mux.Handle(path+"/", http.StripPrefix(path, handler))
	ms.mux.Handle(path, http.StripPrefix(path, handler))
}

// Handle registers handler for exactly path, without prefix stripping.
func (ms *RootServer) Handle(path, desc string, handler http.Handler) {
	path = normalize(path)
	ms.log.Info("Handle: %s", path)

	ms.subservers[path] = subserver{desc: desc}
	ms.mux.Handle(path, handler)
}

// Handler returns the underlying mux.
func (ms *RootServer) Handler() http.Handler {
	return ms.mux
}

func (ms *RootServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	title := html.EscapeString(ms.title)
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body>\n", title)
	fmt.Fprintf(w, "<h1>%s</h1><ul>\n", title)

	paths := make([]string, 0, len(ms.subservers))
	for path := range ms.subservers {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		fmt.Fprintf(w, `<li><a href="%s">%s</a> - %s</li>`+"\n", path, path, html.EscapeString(ms.subservers[path].desc))
	}

	fmt.Fprintln(w, "</ul></body></html>")
}

func (ms *RootServer) routes() {
	ms.mux.HandleFunc("/index", ms.handleIndex)
	ms.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/index", http.StatusTemporaryRedirect)
	})
}

// Run starts serving and blocks until the context is canceled.
func (ms *RootServer) Run(ctx context.Context) {
	ms.log.Info("Running on %s", ms.addr)
	ms.routes()

	srv := &http.Server{
		Addr:              ms.addr,
		Handler:           ms.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		ms.log.Info("Stopped")
	case err := <-errCh:
		if err != nil {
			ms.log.Error("Stopped: %T %+v", err, err)
		}
	}
}

package cli

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"slate/pkg/compiler"
	"slate/pkg/host"
	"slate/pkg/logger"
)

// HandleServe runs the preview server: every request renders the
// matching template from the template directory, query parameters
// become scope variables, and a filesystem watcher drops cache entries
// as sources change.
func HandleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	lang := fs.String("lang", "en", "translation language")
	fs.Parse(args)

	c, err := compiler.New(templateDir(), cacheDir())
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	eval := host.NewEvaluator(c)
	if table, err := host.LoadTranslations(langDir()); err == nil {
		eval.WithTranslations(table, *lang)
	} else {
		slog.Warn("translations unavailable", "dir", langDir(), "err", err)
	}

	go watchTemplates(c)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}}))
	r.Use(logger.Middleware)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		path := strings.TrimPrefix(req.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		vars := map[string]interface{}{}
		for k, v := range req.URL.Query() {
			if len(v) == 1 {
				vars[k] = v[0]
			} else {
				vals := make([]interface{}, len(v))
				for i, s := range v {
					vals[i] = s
				}
				vars[k] = vals
			}
		}

		out, err := eval.RenderFile(path, vars)
		if err != nil {
			if d, ok := err.(compiler.Diagnostic); ok && d.Kind == compiler.ErrTemplateNotFound {
				http.NotFound(w, req)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(out))
	})

	slog.Info("preview server listening", "addr", *addr, "templates", templateDir())
	if err := http.ListenAndServe(*addr, r); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}

// watchTemplates invalidates cache entries when template sources
// change, so the next request recompiles immediately.
func watchTemplates(c *compiler.Compiler) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("watcher unavailable", "err", err)
		return
	}
	defer watcher.Close()

	root := templateDir()
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			watcher.Add(path)
		}
		return nil
	})

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 && isTemplate(ev.Name) {
				// Invalidate resolves against the template dir, which
				// ev.Name already includes.
				if rel, err := filepath.Rel(root, ev.Name); err == nil {
					c.Invalidate(rel)
				}
				slog.Debug("template changed", "path", ev.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watch error", "err", err)
		}
	}
}

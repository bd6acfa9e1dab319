// Package api serves a finished enumeration run over HTTP: the orbit list,
// per-orbit details, and per-orbit structure files. It reads the artifact
// files a pipeline run left in a directory; it never recomputes anything.
package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/latticelab/subcell/pkg/artifact"
	"github.com/latticelab/subcell/pkg/errors"
)

// OrbitView is the JSON shape of one orbit.
type OrbitView struct {
	Index         int   `json:"index"` // 1-based position in emission order
	Degeneracy    int64 `json:"degeneracy"`
	Configuration []int `json:"configuration"` // 1-based species per site
}

// Server exposes one run directory.
type Server struct {
	dir    string
	logger *log.Logger
}

// NewServer creates a server over the artifacts in dir.
func NewServer(dir string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{dir: dir, logger: logger}
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/orbits", s.listOrbits)
		r.Get("/orbits/{id}", s.getOrbit)
		r.Get("/orbits/{id}/poscar", s.getStructure)
	})
	return r
}

func (s *Server) listOrbits(w http.ResponseWriter, req *http.Request) {
	orbits, err := s.load()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.json(w, http.StatusOK, orbits)
}

func (s *Server) getOrbit(w http.ResponseWriter, req *http.Request) {
	orbits, err := s.load()
	if err != nil {
		s.fail(w, err)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(req, "id"))
	if err != nil || id < 1 || id > len(orbits) {
		s.fail(w, errors.New(errors.ErrCodeNotFound, "no orbit %q", chi.URLParam(req, "id")))
		return
	}
	s.json(w, http.StatusOK, orbits[id-1])
}

func (s *Server) getStructure(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(req, "id"))
	if err != nil || id < 1 {
		s.fail(w, errors.New(errors.ErrCodeNotFound, "no orbit %q", chi.URLParam(req, "id")))
		return
	}
	path := filepath.Join(s.dir, "structures", fmt.Sprintf("c%05d.vasp", id))
	data, err := os.ReadFile(path)
	if err != nil {
		s.fail(w, errors.New(errors.ErrCodeNotFound, "no structure for orbit %d (was the run made with lpos?)", id))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(data)
}

// load reads CONFGL and CONFGD from the run directory.
func (s *Server) load() ([]OrbitView, error) {
	assigns, err := readRows(filepath.Join(s.dir, artifact.ConfigurationsFile))
	if err != nil {
		return nil, err
	}
	degs, err := readRows(filepath.Join(s.dir, artifact.DegeneraciesFile))
	if err != nil {
		return nil, err
	}
	if len(assigns) != len(degs) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"%d configurations but %d degeneracies", len(assigns), len(degs))
	}

	orbits := make([]OrbitView, len(assigns))
	for i := range assigns {
		if len(degs[i]) != 1 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "degeneracy row %d is malformed", i+1)
		}
		orbits[i] = OrbitView{
			Index:         i + 1,
			Degeneracy:    int64(degs[i][0]),
			Configuration: assigns[i],
		}
	}
	return orbits, nil
}

// readRows parses a whitespace-separated integer table.
func readRows(path string) ([][]int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "artifact %s", filepath.Base(path))
		}
		return nil, err
	}
	defer f.Close()

	var rows [][]int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		row := make([]int, len(fields))
		for i, fld := range fields {
			v, err := strconv.Atoi(fld)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s line %d", filepath.Base(path), len(rows)+1)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows, sc.Err()
}

func (s *Server) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, errors.ErrCodeNotFound) {
		status = http.StatusNotFound
	} else if errors.Is(err, errors.ErrCodeInvalidInput) {
		status = http.StatusUnprocessableEntity
	}
	s.json(w, status, map[string]string{
		"code":  string(errors.GetCode(err)),
		"error": errors.UserMessage(err),
	})
}

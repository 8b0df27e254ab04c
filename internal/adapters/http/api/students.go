package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/gradelens/internal/adapters/repository"
	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/pkg/logger"
)

const (
	studentsPrefix  = "/students/"
	commentsSegment = "comments"
)

// StudentDirectory is the slice of the service the student endpoints need.
type StudentDirectory interface {
	Students(ctx context.Context) ([]string, error)
	StudentProfile(ctx context.Context, name string, req service.AnalysisRequest) (*service.Profile, error)
	AddComment(ctx context.Context, req service.CommentRequest) (repository.Comment, error)
	Comments(ctx context.Context, student string, role model.Role, viewer string) ([]repository.Comment, error)
}

// StudentsHandler serves student listings, profiles and comments.
type StudentsHandler struct {
	dir    StudentDirectory
	logger logger.Logger
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(dir StudentDirectory, l logger.Logger) *StudentsHandler {
	return &StudentsHandler{dir: dir, logger: l}
}

type commentRequest struct {
	Body   string `json:"body"`
	Author string `json:"author,omitempty"`
}

// HandleList handles GET /students. Students only see themselves.
func (h *StudentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_students"
	if r.Method != http.MethodGet {
		fail(r.Context(), h.logger, w, NewKind(op, ErrMethodNotAllowed))
		return
	}
	c, err := callerFrom(r)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	names, err := h.dir.Students(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	out := []string{}
	for _, n := range names {
		if c.Role == model.RoleStudent && n != c.Student {
			continue
		}
		out = append(out, n)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleStudent handles GET /students/{name} and
// GET|POST /students/{name}/comments.
func (h *StudentsHandler) HandleStudent(w http.ResponseWriter, r *http.Request) {
	const op = "api.student"
	name, sub := splitStudentPath(r.URL.Path)
	if name == "" {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, nil))
		return
	}
	c, err := callerFrom(r)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.profile(w, r, name, c)
	case sub == commentsSegment && r.Method == http.MethodGet:
		h.listComments(w, r, name, c)
	case sub == commentsSegment && r.Method == http.MethodPost:
		h.addComment(w, r, name, c)
	case sub == "" || sub == commentsSegment:
		fail(r.Context(), h.logger, w, NewKind(op, ErrMethodNotAllowed))
	default:
		http.NotFound(w, r)
	}
}

func (h *StudentsHandler) profile(w http.ResponseWriter, r *http.Request, name string, c caller) {
	const op = "api.student_profile"
	p, err := h.dir.StudentProfile(r.Context(), name, service.AnalysisRequest{Role: c.Role, Student: c.Student})
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *StudentsHandler) listComments(w http.ResponseWriter, r *http.Request, name string, c caller) {
	const op = "api.list_comments"
	cs, err := h.dir.Comments(r.Context(), name, c.Role, c.Student)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	if cs == nil {
		cs = []repository.Comment{}
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *StudentsHandler) addComment(w http.ResponseWriter, r *http.Request, name string, c caller) {
	const op = "api.add_comment"
	var body commentRequest
	if err := decodeJSON(r, &body); err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	author := c.User
	if author == "" {
		author = strings.TrimSpace(body.Author)
	}
	cm, err := h.dir.AddComment(r.Context(), service.CommentRequest{
		Student: name,
		Role:    c.Role,
		Author:  author,
		Body:    body.Body,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, cm)
}

// splitStudentPath turns "/students/{name}[/sub]" into its parts.
func splitStudentPath(path string) (name, sub string) {
	rest := strings.Trim(strings.TrimPrefix(path, studentsPrefix), "/")
	name, sub, _ = strings.Cut(rest, "/")
	return strings.TrimSpace(name), sub
}

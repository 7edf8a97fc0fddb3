package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/outline"
	"github.com/danmuck/binlens/internal/session"
	"github.com/danmuck/binlens/internal/view"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var errBadIndex = errors.New("server: index must be a non-negative integer")

// Summary is the listing form of a session.
type Summary struct {
	*session.Session
	Segments  int `json:"segments"`
	Anomalies int `json:"anomalies"`
}

func summarize(s *session.Session) Summary {
	return Summary{Session: s, Segments: len(s.Segments()), Anomalies: len(s.Anomalies())}
}

type writeRequest struct {
	Value any `json:"value"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrNoSegment),
		errors.Is(err, session.ErrNoField):
		return http.StatusNotFound
	case errors.Is(err, session.ErrStoreFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, decode.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, decode.ErrBadSignature),
		errors.Is(err, decode.ErrInvariant):
		return http.StatusUnprocessableEntity
	case errors.Is(err, view.ErrReadOnly):
		return http.StatusConflict
	case errors.Is(err, view.ErrValueType),
		errors.Is(err, view.ErrValueRange),
		errors.Is(err, view.ErrOutOfRange),
		errors.Is(err, errBadIndex):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func index(c *gin.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errBadIndex, name, c.Param(name))
	}
	return n, nil
}

func (s *Server) lookup(c *gin.Context) (*session.Session, bool) {
	sess, err := s.Store.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) openSession(c *gin.Context) {
	name := c.Query("name")
	hint := c.DefaultQuery("hint", name)

	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
	buf, err := io.ReadAll(body)
	if err != nil {
		fail(c, err)
		return
	}

	sess, err := s.Store.Open(name, hint, buf)
	if err != nil {
		fail(c, err)
		return
	}
	log.Info().
		Str("session", sess.ID).
		Str("format", sess.Format).
		Int("size", sess.Size).
		Int("anomalies", len(sess.Anomalies())).
		Msg("session opened")
	c.JSON(http.StatusCreated, summarize(sess))
}

func (s *Server) listSessions(c *gin.Context) {
	list := s.Store.List()
	out := make([]Summary, 0, len(list))
	for _, sess := range list {
		out = append(out, summarize(sess))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	var nodes []outline.Node
	sess.Read(func(buf []byte) {
		nodes = outline.Build(sess.Tree(), buf)
	})
	c.JSON(http.StatusOK, gin.H{
		"session":   summarize(sess),
		"anomalies": sess.Anomalies(),
		"outline":   nodes,
	})
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.Store.Delete(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) rawSession(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	name := sess.Name
	if name == "" {
		name = sess.ID + "." + sess.Format
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/octet-stream", sess.Bytes())
}

func (s *Server) getSegment(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	i, err := index(c, "seg")
	if err != nil {
		fail(c, err)
		return
	}
	seg, err := sess.Segment(i)
	if err != nil {
		fail(c, err)
		return
	}

	var fields []outline.Field
	lines := make([]string, 0, len(seg.Fragments))
	sess.Read(func(buf []byte) {
		fields = outline.Fields(seg, buf)
		for _, f := range seg.Fragments {
			lines = append(lines, outline.Render(seg, f, buf))
		}
	})
	c.JSON(http.StatusOK, gin.H{
		"index":     i,
		"title":     seg.Title,
		"color":     seg.Color,
		"range":     seg.Bound(),
		"fields":    fields,
		"fragments": seg.Fragments,
		"lines":     lines,
	})
}

func (s *Server) writeField(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	seg, err := index(c, "seg")
	if err != nil {
		fail(c, err)
		return
	}
	field, err := index(c, "field")
	if err != nil {
		fail(c, err)
		return
	}

	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := sess.WriteField(seg, field, req.Value); err != nil {
		fail(c, err)
		return
	}
	value, err := sess.FieldValue(seg, field)
	if err != nil {
		fail(c, err)
		return
	}
	log.Debug().
		Str("session", sess.ID).
		Int("segment", seg).
		Int("field", field).
		Msg("field written")
	c.JSON(http.StatusOK, gin.H{"segment": seg, "field": field, "value": outline.Value(value)})
}

func (s *Server) selectFields(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	var ranges []view.Bound
	if err := c.ShouldBindJSON(&ranges); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	refs := sess.Select(ranges)
	if refs == nil {
		refs = []session.FieldRef{}
	}
	c.JSON(http.StatusOK, gin.H{"fields": refs})
}

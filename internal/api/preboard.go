package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"preboard/internal/workflow"
)

func (s *Server) listClasses(c *gin.Context) {
	classes, err := s.Students.Classes(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

func (s *Server) createSession(c *gin.Context) {
	sess := s.Sessions.Create()
	c.JSON(http.StatusCreated, sess.Snapshot())
}

// session resolves :id or writes a 404.
func (s *Server) session(c *gin.Context) (*workflow.Session, bool) {
	sess, err := s.Sessions.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) deleteSession(c *gin.Context) {
	if !s.Sessions.Delete(c.Param("id")) {
		fail(c, workflow.ErrSessionNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// reply writes the snapshot returned by a session operation, or its error.
func reply(c *gin.Context) func(workflow.Snapshot, error) {
	return func(snap workflow.Snapshot, err error) {
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func (s *Server) search(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req struct {
		Class  string `json:"class"`
		RollNo string `json:"roll_no"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := sess.SetQuery(req.Class, req.RollNo); err != nil {
		fail(c, err)
		return
	}
	snap, err := sess.Search(c.Request.Context())
	if errors.Is(err, workflow.ErrNotFound) {
		c.JSON(http.StatusOK, snap)
		return
	}
	reply(c)(snap, err)
}

func (s *Server) setAadhar(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req struct {
		AadharNo string `json:"aadhar_no"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	reply(c)(sess.SetAadhar(req.AadharNo))
}

func (s *Server) attachUploads(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	photo, err := formUpload(c, "photograph")
	if err != nil {
		fail(c, err)
		return
	}
	sig, err := formUpload(c, "signature")
	if err != nil {
		fail(c, err)
		return
	}
	if photo == nil && sig == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photograph or signature file required"})
		return
	}
	reply(c)(sess.Attach(c.Request.Context(), photo, sig))
}

// formUpload reads an optional multipart file field.
func formUpload(c *gin.Context, field string) (*workflow.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, &workflow.ValidationError{Field: field, Message: "could not read upload"}
	}
	data, err := readUpload(fh)
	if err != nil {
		return nil, &workflow.ValidationError{Field: field, Message: err.Error()}
	}
	return &workflow.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxUploadBytes {
		return nil, fmt.Errorf("file must be smaller than %d MB", maxUploadBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("could not read upload")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, errors.New("could not read upload")
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("file must be smaller than %d MB", maxUploadBytes>>20)
	}
	if len(data) == 0 {
		return nil, errors.New("file is empty")
	}
	return data, nil
}

func (s *Server) clearUpload(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	switch c.Param("kind") {
	case "photograph":
		reply(c)(sess.ClearPhotograph())
	case "signature":
		reply(c)(sess.ClearSignature())
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown upload kind"})
	}
}

func (s *Server) submit(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	reply(c)(sess.Submit(c.Request.Context()))
}

func (s *Server) sessionAdmitCard(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	doc, err := sess.AdmitCard(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	sendDocument(c, doc)
}

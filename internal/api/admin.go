package api

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"preboard/internal/admitcard"
	"preboard/internal/blob"
	"preboard/internal/metrics"
	"preboard/internal/student"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) dashboard(c *gin.Context) {
	stats, err := s.Students.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "active_sessions": s.Sessions.Len()})
}

func (s *Server) listStudents(c *gin.Context) {
	var f student.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	list, err := s.Students.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": list})
}

func (s *Server) createStudent(c *gin.Context) {
	var in student.FormData
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := s.Students.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) getStudent(c *gin.Context) {
	rec, err := s.Students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// updateStudent applies a partial update guarded by the version the editor last saw.
func (s *Server) updateStudent(c *gin.Context) {
	var req struct {
		Version int `json:"version" binding:"required,min=1"`
		student.Patch
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := s.Students.Update(c.Request.Context(), c.Param("id"), req.Version, req.Patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteStudent(c *gin.Context) {
	if err := s.Students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// studentAdmitCard renders any record's card for the office, submitted or not.
func (s *Server) studentAdmitCard(c *gin.Context) {
	ctx := c.Request.Context()
	rec, err := s.Students.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	img := admitcard.Images{
		Photograph: s.fetch(ctx, rec.PhotographURL),
		Signature:  s.fetch(ctx, rec.SignatureURL),
	}
	doc, err := s.Renderer.Render(rec, img)
	if err != nil {
		fail(c, err)
		return
	}
	metrics.AdmitCards.WithLabelValues("admin").Inc()
	sendDocument(c, doc)
}

func (s *Server) fetch(ctx context.Context, url *string) []byte {
	if url == nil || *url == "" || s.Blobs == nil {
		return nil
	}
	data, err := s.Blobs.Fetch(ctx, *url)
	if err != nil {
		log.Printf("admit card: fetch %s: %v", *url, err)
		return nil
	}
	return data
}

func (s *Server) exportStudents(c *gin.Context) {
	var f student.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	list, err := s.Students.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := student.WriteRoster(&buf, list); err != nil {
		fail(c, err)
		return
	}
	name := "students_" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// adminUpload stores a replacement photograph or signature and returns its URL for a
// later student update.
func (s *Server) adminUpload(c *gin.Context) {
	bucket, err := blob.ParseBucket(c.Param("bucket"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "field": "file"})
		return
	}
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = fh.Filename
	}
	res, err := s.Blobs.Upload(c.Request.Context(), bucket, name, data)
	if err != nil {
		if errors.Is(err, blob.ErrNotConfigured) {
			fail(c, err)
			return
		}
		log.Printf("upload to %s failed: %v", bucket, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":       res.SecureURL,
		"public_id": res.PublicID,
		"width":     res.Width,
		"height":    res.Height,
		"bytes":     res.Bytes,
	})
}

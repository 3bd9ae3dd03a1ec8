package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"preboard/internal/admitcard"
	"preboard/internal/blob"
	"preboard/internal/httpmiddleware"
	"preboard/internal/identity"
	"preboard/internal/student"
	"preboard/internal/workflow"
)

// Students is the admin view of the record store; *student.Service implements it.
type Students interface {
	Get(ctx context.Context, id string) (*student.Record, error)
	List(ctx context.Context, f student.Filter) ([]student.Record, error)
	Create(ctx context.Context, in student.FormData) (*student.Record, error)
	Update(ctx context.Context, id string, version int, p student.Patch) (*student.Record, error)
	Delete(ctx context.Context, id string) error
	Classes(ctx context.Context) ([]student.Class, error)
	Stats(ctx context.Context) (student.Stats, error)
}

// Blobs stores and fetches uploaded images; *blob.Client implements it.
type Blobs interface {
	Upload(ctx context.Context, bucket blob.Bucket, name string, data []byte) (*blob.UploadResult, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HealthCheck reports one dependency's health for /healthz.
type HealthCheck func(ctx context.Context) bool

// Deps wires the server to its collaborators.
type Deps struct {
	Students    Students
	Sessions    *workflow.Registry
	Identity    *identity.Sessions
	Roles       *identity.RoleChecker
	Blobs       Blobs
	Renderer    workflow.Renderer
	Limiter     *httpmiddleware.SimpleTokenBucket
	Tokens      identity.TokenConfig
	CORSOrigins []string
	Health      map[string]HealthCheck
}

// Server serves the portal and admin console APIs.
type Server struct {
	Deps
}

// New creates a server.
func New(d Deps) *Server {
	return &Server{Deps: d}
}

const maxUploadBytes = 5 << 20

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 2 * maxUploadBytes
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(s.corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	public := r.Group("/v1")
	if s.Limiter != nil {
		public.Use(s.Limiter.GinMiddleware())
	}
	public.GET("/classes", s.listClasses)

	pre := public.Group("/preboard/sessions")
	pre.POST("", s.createSession)
	pre.GET("/:id", s.getSession)
	pre.DELETE("/:id", s.deleteSession)
	pre.POST("/:id/search", s.search)
	pre.PUT("/:id/aadhar", s.setAadhar)
	pre.POST("/:id/uploads", s.attachUploads)
	pre.DELETE("/:id/uploads/:kind", s.clearUpload)
	pre.POST("/:id/submit", s.submit)
	pre.GET("/:id/admit-card", s.sessionAdmitCard)

	authn := public.Group("/auth")
	authn.POST("/login", s.login)
	authn.POST("/refresh", s.refresh)
	authn.POST("/logout", s.logout)
	authn.GET("/session", identity.Bearer(s.Tokens.SigningKey, s.Tokens.Issuer), s.currentSession)

	admin := r.Group("/v1/admin", identity.Bearer(s.Tokens.SigningKey, s.Tokens.Issuer), identity.RequireAdmin(s.Roles))
	admin.GET("/dashboard", s.dashboard)
	admin.GET("/students", s.listStudents)
	admin.POST("/students", s.createStudent)
	admin.GET("/students/:id", s.getStudent)
	admin.PUT("/students/:id", s.updateStudent)
	admin.DELETE("/students/:id", s.deleteStudent)
	admin.GET("/students/:id/admit-card", s.studentAdmitCard)
	admin.GET("/export/students", s.exportStudents)
	admin.POST("/uploads/:bucket", s.adminUpload)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range s.Health {
		ok := check(ctx)
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	body["sessions"] = s.Sessions.Len()
	c.JSON(status, body)
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	origins := s.CORSOrigins
	for _, o := range origins {
		if o == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// fail maps domain errors onto status codes. Anything unrecognised is logged and
// reported as a 500 without its details.
func fail(c *gin.Context, err error) {
	var (
		field  *workflow.ValidationError
		fields student.ValidationErrors
		render *admitcard.RenderError
	)
	switch {
	case errors.As(err, &field):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": field.Message, "field": field.Field})
	case errors.As(err, &fields):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
	case errors.As(err, &render):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": render.Error(), "field": render.Field})
	case errors.Is(err, student.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "the record was changed by someone else, reload and try again"})
	case errors.Is(err, student.ErrDuplicate), errors.Is(err, workflow.ErrBusy), errors.Is(err, workflow.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, student.ErrNotFound), errors.Is(err, workflow.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrNoSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, blob.ErrNotConfigured), errors.Is(err, identity.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case workflow.IsRemote(err):
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "service temporarily unavailable, please try again"})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func sendDocument(c *gin.Context, doc *admitcard.Document) {
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

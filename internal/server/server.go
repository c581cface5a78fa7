// Package server implements the book service the catalog client talks to.
package server

import (
	"database/sql"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"bookman/internal/activity"
	"bookman/internal/catalog"
	"bookman/internal/db"
	"bookman/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BasePath is the route prefix of every endpoint.
const BasePath = "/bookapi"

const banner = "bookman reference service"

type server struct {
	db       *sql.DB
	recorder activity.Recorder
	logOut   io.Writer
}

// Option configures the router.
type Option func(*server)

// WithRecorder enables the request activity log and its endpoint.
func WithRecorder(r activity.Recorder) Option {
	return func(s *server) {
		s.recorder = r
	}
}

// WithLogOutput sets where access logs go. A nil writer disables them.
func WithLogOutput(w io.Writer) Option {
	return func(s *server) {
		s.logOut = w
	}
}

// New builds the router over an open database.
func New(database *sql.DB, opts ...Option) *gin.Engine {
	s := &server{db: database, logOut: gin.DefaultWriter}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	// ISBNs may contain escaped slashes
	r.UseRawPath = true
	r.UnescapePathValues = true
	if s.logOut != nil {
		r.Use(gin.LoggerWithWriter(s.logOut))
	}
	r.Use(gin.Recovery(), requestID(), cors())
	if s.recorder != nil {
		r.Use(s.recordActivity())
	}

	api := r.Group(BasePath)
	{
		api.GET("/", s.home)
		api.GET("/all", s.listBooks)
		api.GET("/get/:isbn", s.getBook)
		api.POST("/add", s.createBook)
		api.PUT("/update/:isbn", s.updateBook)
		api.DELETE("/delete/:isbn", s.deleteBook)
		if s.recorder != nil {
			api.GET("/activity", s.activity)
		}
	}
	return r
}

func (s *server) home(c *gin.Context) {
	c.String(http.StatusOK, banner)
}

func (s *server) listBooks(c *gin.Context) {
	books, err := db.ListBooks(s.db)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *server) getBook(c *gin.Context) {
	book, err := db.GetBook(s.db, c.Param("isbn"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *server) createBook(c *gin.Context) {
	var book model.Book
	if err := c.ShouldBindJSON(&book); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	book.ISBN = strings.TrimSpace(book.ISBN)
	if book.ISBN == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "isbn cannot be empty"})
		return
	}
	if !validPrice(book.Price) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "price must be a non-negative number"})
		return
	}

	if err := db.InsertBook(s.db, book); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (s *server) updateBook(c *gin.Context) {
	var changes model.BookUpdate
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if !validPrice(changes.Price) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "price must be a non-negative number"})
		return
	}

	book, err := db.UpdateBook(s.db, c.Param("isbn"), changes)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *server) deleteBook(c *gin.Context) {
	if err := db.DeleteBook(s.db, c.Param("isbn")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) activity(c *gin.Context) {
	entries, err := s.recorder.Recent()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func validPrice(p float64) bool {
	return p >= 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, db.ErrDuplicate):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		log.Printf("request %s failed: %v", c.GetString(requestIDKey), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}

const requestIDKey = "request_id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(catalog.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(catalog.RequestIDHeader, id)
		c.Next()
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+catalog.RequestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *server) recordActivity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		entry := activity.Entry{
			RequestID: c.GetString(requestIDKey),
			Method:    c.Request.Method,
			Route:     c.Request.URL.Path,
			Status:    c.Writer.Status(),
			At:        time.Now().UTC(),
		}
		if err := s.recorder.Record(entry); err != nil {
			log.Printf("record activity: %v", err)
		}
	}
}

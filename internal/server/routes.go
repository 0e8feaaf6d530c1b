package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/danmuck/eftview/internal/auth"
	"github.com/danmuck/eftview/internal/observability"
	"github.com/danmuck/eftview/internal/protocol"
	"github.com/danmuck/eftview/internal/record"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// availability is implemented by decoders backed by an external binary.
type availability interface {
	Available() bool
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		decoders := gin.H{}
		for _, comp := range []record.Compression{record.CompressionNone, record.CompressionWSQ, record.CompressionJPEG2000} {
			dec, ok := s.svc.Orchestrator().Decoder(comp)
			available := ok
			if a, isExec := dec.(availability); ok && isExec {
				available = a.Available()
			}
			decoders[comp.String()] = available
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"uptime":   time.Since(s.appeared).String(),
			"service":  "eftview",
			"profile":  s.svc.Profile().Name(),
			"decoders": decoders,
		})
	})

	parse := []gin.HandlerFunc{s.handleParse}
	if s.cfg.APIToken != "" {
		parse = append([]gin.HandlerFunc{auth.RequireToken(auth.StaticToken{Token: s.cfg.APIToken})}, parse...)
	}
	api.POST("/parse", parse...)

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) handleParse(c *gin.Context) {
	raw, filename, err := s.readUpload(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty upload"})
		return
	}

	in, err := s.svc.Inspect(c.Request.Context(), raw, true)
	if err != nil {
		body := gin.H{"error": err.Error(), "filename": filename}
		var pe *protocol.ParseError
		if errors.As(err, &pe) {
			body["offset"] = pe.Offset
			body["record_index"] = pe.RecordIndex
			if pe.Tag != (protocol.Tag{}) {
				body["tag"] = pe.Tag.String()
			}
		}
		log.Warn().Err(err).Str("request_id", c.GetString(observability.RequestIDHeader)).Msg("server.parse rejected")
		c.JSON(http.StatusUnprocessableEntity, body)
		return
	}
	resp := buildResponse(filename, in)
	resp.RequestID = c.GetString(observability.RequestIDHeader)
	c.JSON(http.StatusOK, resp)
}

// readUpload accepts a multipart "file" part or a raw request body.
func (s *Server) readUpload(c *gin.Context) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, f); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), fh.Filename, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, "", err
	}
	return raw, c.Query("filename"), nil
}

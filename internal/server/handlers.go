package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bodyanalyzer "github.com/menta2k/body-analyzer"
	"github.com/menta2k/body-analyzer/pkg/classifier"
	"github.com/menta2k/body-analyzer/pkg/pose"
	"github.com/menta2k/body-analyzer/pkg/processing"
	"github.com/menta2k/body-analyzer/pkg/recommend"
)

type classifyRequest struct {
	R1 *float64 `json:"r1" binding:"required"`
	R2 *float64 `json:"r2" binding:"required"`
}

type classifyResponse struct {
	classifier.Result
	Description     string                          `json:"description"`
	StyleTips       []string                        `json:"styleTips"`
	Recommendations []recommend.DressRecommendation `json:"recommendations"`
}

type recommendationsResponse struct {
	BodyType        string                          `json:"bodyType"`
	IsDefault       bool                            `json:"isDefault"`
	Recommendations []recommend.DressRecommendation `json:"recommendations"`
	Advice          recommend.StyleAdvice           `json:"advice"`
	Colors          recommend.ColorAdvice           `json:"colors"`
}

func (s *Server) health(c *gin.Context) {
	cls := s.analyzer.Classifier()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": bodyanalyzer.Version,
		"tiers":   cls.Tiers(),
		"loaded":  cls.Loaded(),
	})
}

func (s *Server) classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"r1\": number, \"r2\": number}"})
		return
	}

	res := s.analyzer.Classify(c.Request.Context(), *req.R1, *req.R2)
	bt := res.BodyType.String()
	c.JSON(http.StatusOK, classifyResponse{
		Result:          res,
		Description:     classifier.Description(bt),
		StyleTips:       classifier.StyleTips(bt),
		Recommendations: recommend.Recommend(bt),
	})
}

func (s *Server) recommendations(c *gin.Context) {
	bt := c.Param("bodyType")
	recs := recommend.Recommend(bt)
	c.JSON(http.StatusOK, recommendationsResponse{
		BodyType:        bt,
		IsDefault:       recommend.IsDefault(recs),
		Recommendations: recs,
		Advice:          recommend.Advice(bt),
		Colors:          recommend.Colors(bt),
	})
}

func (s *Server) analyze(c *gin.Context) {
	if s.cfg.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"image\" is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	defer f.Close()

	img, err := s.analyzer.Processor().LoadImageFromReader(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.analyzer.Analyze(c.Request.Context(), img)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, processing.ErrImageTooSmall):
			status = http.StatusBadRequest
		case errors.Is(err, pose.ErrLandmarksNotFound):
			status = http.StatusUnprocessableEntity
		}
		s.logger.Warn("analysis failed", zap.String("file", fh.Filename), zap.Error(err))
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	res.Source = fh.Filename
	c.JSON(http.StatusOK, res)
}

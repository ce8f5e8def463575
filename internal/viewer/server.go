// Package viewer exposes a read-only HTTP API over the persisted archive:
// the channel registry, paged message listings with authors and media
// resolved, and the materialized asset files themselves.
package viewer

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatvault/internal/store"
	"chatvault/pkg/logger"
)

// Server serves the archive.
type Server struct {
	repo      *store.Repository
	assetRoot string
	pageLimit int
	logger    *zap.Logger
}

// NewServer creates a viewer over the repository. pageLimit caps message
// page sizes.
func NewServer(repo *store.Repository, assetRoot string, pageLimit int) *Server {
	return &Server{
		repo:      repo,
		assetRoot: assetRoot,
		pageLimit: pageLimit,
		logger:    logger.Get(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/channels", s.listChannels)
	api.GET("/channels/:infix/messages", s.listMessages)

	r.Static("/assets", s.assetRoot)

	return r
}

type channelResponse struct {
	ID          int64   `json:"id"`
	Infix       string  `json:"infix"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) listChannels(c *gin.Context) {
	rows, err := s.repo.Channels(c.Request.Context())
	if err != nil {
		s.logger.Error("channel listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list channels"})
		return
	}

	out := make([]channelResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, channelResponse{
			ID:          row.ID,
			Infix:       row.Infix,
			Name:        row.Name,
			Description: row.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{"channels": out})
}

type assetResponse struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

type embedResponse struct {
	Kind        string         `json:"kind"`
	Color       *string        `json:"color"`
	Footer      *string        `json:"footer"`
	Author      *string        `json:"author"`
	AuthorURL   *string        `json:"author_url"`
	Title       *string        `json:"title"`
	TitleURL    *string        `json:"title_url"`
	Description *string        `json:"description"`
	EmbedURL    *string        `json:"embed_url"`
	Asset       *assetResponse `json:"asset"`
}

type replyPreview struct {
	ID       int64   `json:"id"`
	AuthorID int64   `json:"author_id"`
	Content  *string `json:"content"`
}

type messageResponse struct {
	ID          int64           `json:"id"`
	AuthorID    int64           `json:"author_id"`
	AuthorName  string          `json:"author_name"`
	SentAt      string          `json:"sent_at"`
	Content     *string         `json:"content"`
	StickerID   *int64          `json:"sticker_id"`
	RepliesTo   *replyPreview   `json:"replies_to"`
	Attachments []assetResponse `json:"attachments"`
	Embeds      []embedResponse `json:"embeds"`
}

func (s *Server) listMessages(c *gin.Context) {
	ctx := c.Request.Context()
	infix := c.Param("infix")

	channel, err := s.repo.ChannelByInfix(ctx, infix)
	if err != nil {
		s.logger.Error("channel lookup failed", zap.String("infix", infix), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "channel lookup failed"})
		return
	}
	if channel == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return
	}

	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(s.pageLimit)))
	if limit <= 0 || limit > s.pageLimit {
		limit = s.pageLimit
	}

	table := store.MessageTable(infix)
	rows, err := s.repo.Messages(ctx, table, before, limit)
	if err != nil {
		s.logger.Error("message listing failed", zap.String("table", table), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	authorIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		authorIDs = append(authorIDs, row.AuthorID)
	}
	authors, err := s.repo.AuthorsByID(ctx, authorIDs)
	if err != nil {
		s.logger.Error("author lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve authors"})
		return
	}

	out := make([]messageResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.renderMessage(c, table, row, authors))
	}
	c.JSON(http.StatusOK, gin.H{"channel": infix, "messages": out})
}

func (s *Server) renderMessage(c *gin.Context, table string, row store.MessageRow, authors map[int64]store.AuthorRow) messageResponse {
	ctx := c.Request.Context()

	resp := messageResponse{
		ID:          row.ID,
		AuthorID:    row.AuthorID,
		SentAt:      row.SentAt.UTC().Format("2006-01-02T15:04:05Z"),
		Content:     row.Content,
		StickerID:   row.StickerID,
		Attachments: []assetResponse{},
		Embeds:      []embedResponse{},
	}
	if author, ok := authors[row.AuthorID]; ok {
		resp.AuthorName = author.DisplayName
	}

	// A dangling reply id renders as no preview rather than an error.
	if row.RepliesTo != nil {
		if target, err := s.repo.MessageByID(ctx, table, *row.RepliesTo); err == nil && target != nil {
			resp.RepliesTo = &replyPreview{
				ID:       target.ID,
				AuthorID: target.AuthorID,
				Content:  target.Content,
			}
		}
	}

	if row.AttachmentGroupID != nil {
		if assets, err := s.repo.AttachmentAssets(ctx, *row.AttachmentGroupID); err == nil {
			for _, a := range assets {
				resp.Attachments = append(resp.Attachments, renderAsset(a))
			}
		}
	}

	if row.EmbedGroupID != nil {
		if embeds, err := s.repo.EmbedsByGroup(ctx, *row.EmbedGroupID); err == nil {
			for _, e := range embeds {
				resp.Embeds = append(resp.Embeds, s.renderEmbed(c, e))
			}
		}
	}

	return resp
}

func (s *Server) renderEmbed(c *gin.Context, row store.EmbedRow) embedResponse {
	resp := embedResponse{
		Kind:        row.Kind,
		Color:       row.Color,
		Footer:      row.Footer,
		Author:      row.Author,
		AuthorURL:   row.AuthorURL,
		Title:       row.Title,
		TitleURL:    row.TitleURL,
		Description: row.Description,
		EmbedURL:    row.EmbedURL,
	}
	if row.AssetID != nil {
		if a, err := s.repo.AssetByID(c.Request.Context(), *row.AssetID); err == nil {
			ar := renderAsset(*a)
			resp.Asset = &ar
		}
	}
	return resp
}

func renderAsset(row store.AssetRow) assetResponse {
	return assetResponse{
		ID:   row.ID,
		Type: row.Type,
		Name: row.Name,
		URL:  "/assets/" + row.Location,
		Size: row.Size,
	}
}

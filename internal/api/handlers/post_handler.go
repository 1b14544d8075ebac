package handlers

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/tupae-api/internal/service"
	"github.com/maheshrc27/tupae-api/internal/transfer"
	"go.uber.org/zap"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

// Register mounts the post routes on r. The stats route goes first so it is
// not taken for a post id.
func (h *PostHandler) Register(r fiber.Router) {
	posts := r.Group("/posts")
	posts.Get("/stats/overview", h.StatsOverview)
	posts.Post("/", h.CreatePost)
	posts.Get("/", h.ListPosts)
	posts.Get("/:id", h.GetPost)
	posts.Put("/:id", h.UpdatePost)
	posts.Delete("/:id", h.DeletePost)
	posts.Post("/:id/media", h.UploadMedia)
	posts.Post("/:id/publish", h.PublishPost)
	posts.Post("/:id/schedule", h.SchedulePost)
	posts.Put("/:id/analytics", h.SyncAnalytics)

	r.Get("/analytics/posts", h.TopPosts)
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req transfer.PostCreation
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := h.s.Create(c.UserContext(), GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) UploadMedia(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		zap.S().Infow("media form unreadable", "error", err)
		return badRequest(c, "No media files provided")
	}

	headers := form.File["media"]
	altTexts := form.Value["altText"]
	files := make([]transfer.MediaFile, 0, len(headers))
	for i, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			return respondError(c, err)
		}
		file := transfer.MediaFile{Filename: fh.Filename, Data: data}
		if i < len(altTexts) {
			file.AltText = altTexts[i]
		}
		files = append(files, file)
	}

	post, err := h.s.AttachMedia(c.UserContext(), c.Params("id"), GetUserID(c), files)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	page, err := h.s.List(c.UserContext(), GetUserID(c), transfer.PostFilter{
		Status:   c.Query("status"),
		Platform: c.Query("platform"),
		Search:   c.Query("search"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 10),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.Get(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	var req transfer.PostUpdate
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := h.s.Edit(c.UserContext(), c.Params("id"), GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	if err := h.s.Delete(c.UserContext(), c.Params("id"), GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	post, err := h.s.PublishNow(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	var req transfer.ScheduleRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := h.s.Schedule(c.UserContext(), c.Params("id"), GetUserID(c), req.ScheduledFor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) SyncAnalytics(c *fiber.Ctx) error {
	var req transfer.AnalyticsSync
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := h.s.SyncAnalytics(c.UserContext(), c.Params("id"), GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) StatsOverview(c *fiber.Ctx) error {
	stats, err := h.s.StatsOverview(c.UserContext(), GetUserID(c), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// TopPosts ranks the caller's posts by engagement.
func (h *PostHandler) TopPosts(c *fiber.Ctx) error {
	posts, err := h.s.TopPosts(c.UserContext(), GetUserID(c), transfer.TopPostsFilter{
		Platform:  c.Query("platform"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
		Limit:     c.QueryInt("limit", 10),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/storefront/pkg/browse"
	sferrors "github.com/yourusername/storefront/pkg/errors"
)

// Handler 将HTTP请求转换为Service调用并格式化响应
type Handler struct {
	service *Service
	events  *broker
	log     logrus.FieldLogger
}

// NewHandler 创建处理程序
func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
		events:  newBroker(service.favorites, service.log),
		log:     service.log,
	}
}

// Close 断开所有事件流客户端
func (h *Handler) Close() {
	h.events.close()
}

// ListProducts 处理 GET /api/products。
// 查询参数与浏览页面的URL参数一致：search、category、from、to、page。
// 无法解析的参数被忽略。
func (h *Handler) ListProducts(c *gin.Context) {
	st, err := browse.ParseState(c.Request.URL.Query())
	if sferrors.IsInvalidParam(err) {
		h.log.WithError(err).Debug("ignoring invalid listing parameters")
	}

	listing, err := h.service.Browse(c.Request.Context(), st)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// GetProduct 处理 GET /api/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	detail, err := h.service.Product(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// SearchProducts 处理 GET /api/search?q=
func (h *Handler) SearchProducts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	res, err := h.service.Search(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListCategories 处理 GET /api/categories
func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.service.Categories(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

// CategoryProducts 处理 GET /api/categories/:slug/products
func (h *Handler) CategoryProducts(c *gin.Context) {
	res, err := h.service.CategoryProducts(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListFavorites 处理 GET /api/favorites
func (h *Handler) ListFavorites(c *gin.Context) {
	view, err := h.service.Favorites(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddFavorite 处理 POST /api/favorites/:id
func (h *Handler) AddFavorite(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	view, err := h.service.AddFavorite(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RemoveFavorite 处理 DELETE /api/favorites/:id
func (h *Handler) RemoveFavorite(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	view, err := h.service.RemoveFavorite(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ToggleFavorite 处理 POST /api/favorites/:id/toggle
func (h *Handler) ToggleFavorite(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	now, err := h.service.ToggleFavorite(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "favorite": now})
}

// FavoriteEvents 处理 GET /api/favorites/events。
// 连接建立后立即发送一次当前数量，之后每次收藏变更发送一次。
func (h *Handler) FavoriteEvents(c *gin.Context) {
	events, cancel := h.events.subscribe()
	defer cancel()

	initial, err := h.events.current(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent(FavoritesEventName, initial)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(FavoritesEventName, ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// productID 解析路径参数id；无效时写入400并返回false
func productID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

// fail 将错误映射为HTTP状态码
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusInternalServerError
	if sferrors.IsNotFound(err) {
		status = http.StatusNotFound
	} else if fe, ok := sferrors.AsFetchError(err); ok {
		status = http.StatusBadGateway
		h.log.WithFields(logrus.Fields{
			"op":       fe.Op,
			"url":      fe.URL,
			"upstream": fe.StatusCode,
		}).WithError(fe.Err).Warn("catalog request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pinkpay/internal/services/plugin"
	"pinkpay/internal/services/queue"
	"pinkpay/internal/utils/response"
)

// PluginRegistry toggles pipeline plugins at runtime.
type PluginRegistry interface {
	Info() []plugin.Info
	Enable(name string) error
	Disable(name string) error
}

type QueueStats interface {
	Stats() queue.Stats
}

type AdminHandler struct {
	plugins PluginRegistry
	queue   QueueStats
}

func NewAdminHandler(plugins PluginRegistry, queue QueueStats) *AdminHandler {
	return &AdminHandler{plugins: plugins, queue: queue}
}

func (h *AdminHandler) ListPlugins(c *fiber.Ctx) error {
	return response.Success(c, "Plugins retrieved", h.plugins.Info())
}

func (h *AdminHandler) EnablePlugin(c *fiber.Ctx) error {
	if err := h.plugins.Enable(c.Params("name")); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Plugin enabled", h.plugins.Info())
}

func (h *AdminHandler) DisablePlugin(c *fiber.Ctx) error {
	if err := h.plugins.Disable(c.Params("name")); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Plugin disabled", h.plugins.Info())
}

func (h *AdminHandler) QueueStats(c *fiber.Ctx) error {
	if h.queue == nil {
		return response.Success(c, "Queue disabled", queue.Stats{})
	}
	return response.Success(c, "Queue stats retrieved", h.queue.Stats())
}

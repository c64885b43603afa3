package handlers

import (
	"bytes"
	"log/slog"
	"text/template"

	"github.com/ahmetk3436/chatnest/internal/config"
	"github.com/gofiber/fiber/v2"
)

// widgetScript is the embed bridge: a host page includes it via one script
// tag and it floats the chat iframe in the corner. The backend origin is
// baked in at render time so the message-event check is an exact match —
// that comparison is the only access control on the resize channel. A
// misconfigured tag logs and bails; it must never break the host site.
const widgetScript = `(function() {
  const script = document.currentScript;
  const publicId = script.getAttribute('data-chat-id');

  if (!publicId) {
    console.error('Chatbot widget: Missing data-chat-id attribute');
    return;
  }

  const iframe = document.createElement('iframe');
  const baseUrl = '{{.BaseURL}}';
  iframe.src = baseUrl + '/embed/' + publicId;

  iframe.style.position = 'fixed';
  iframe.style.bottom = '20px';
  iframe.style.right = '20px';
  iframe.style.width = '90px';
  iframe.style.height = '90px';
  iframe.style.border = 'none';
  iframe.style.zIndex = '2147483647';
  iframe.style.background = 'transparent';
  iframe.style.transition = 'width 0.3s ease, height 0.3s ease';
  iframe.style.overflow = 'hidden';

  document.body.appendChild(iframe);

  window.addEventListener('message', function(event) {
    // Security check: ensure message comes from our domain
    if (event.origin !== baseUrl) return;

    if (event.data.type === 'CHATBOT_RESIZE') {
      if (event.data.isOpen) {
        iframe.style.width = '400px';
        iframe.style.height = '600px';
        iframe.style.bottom = '0';
        iframe.style.right = '0';
      } else {
        iframe.style.width = '90px';
        iframe.style.height = '90px';
        iframe.style.bottom = '20px';
        iframe.style.right = '20px';
      }
    }
  });
})();
`

type WidgetHandler struct {
	rendered []byte
}

func NewWidgetHandler(cfg *config.Config) *WidgetHandler {
	tmpl := template.Must(template.New("widget").Parse(widgetScript))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string{"BaseURL": cfg.AppURL}); err != nil {
		// Template and data are both compile-time constants by the time we
		// get here; an error means a broken build, not a runtime condition.
		slog.Error("Failed to render widget script", "error", err)
	}

	return &WidgetHandler{rendered: buf.Bytes()}
}

// Script serves the embed bridge. Rendered once at startup; served from
// memory on every request.
func (h *WidgetHandler) Script(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/javascript; charset=utf-8")
	c.Set("Cache-Control", "public, max-age=3600")
	return c.Send(h.rendered)
}

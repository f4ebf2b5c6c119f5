package view

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/a-h/templ"
	"github.com/msomdec/travelupa/internal/domain"
)

// GalleryListID is the element the gallery stream patches.
const GalleryListID = "gallery"

const galleryThumbSize = 256

// GalleryList renders the cached images as thumbnails, newest first.
func GalleryList(images []domain.LocalImageEntity) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(images) == 0 {
			_, err := io.WriteString(w, `<p class="empty">Belum ada foto.</p>`)
			return err
		}
		if _, err := io.WriteString(w, `<ul class="gallery-list">`); err != nil {
			return err
		}
		for _, img := range images {
			name := templ.EscapeString(filepath.Base(img.LocalPath))
			linked := ""
			if img.RecordID != "" {
				linked = fmt.Sprintf(` data-record="%s"`, templ.EscapeString(img.RecordID))
			}
			if _, err := fmt.Fprintf(w, `<li class="gallery-item"%s><img src="/api/gallery/%s/thumbnail?size=%d" alt="%s" loading="lazy"></li>`,
				linked, name, galleryThumbSize, name); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

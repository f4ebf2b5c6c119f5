// Package view renders the HTML pages of the destination catalog.
package view

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/msomdec/travelupa/internal/domain"
)

// DestinationListID is the element the live stream patches.
const DestinationListID = "destinations"

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"

// HomePage renders the landing page. The list starts with records and is kept
// current by the destination stream.
func HomePage(displayName string, records []domain.DestinationRecord) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		greeting := "Jelajahi destinasi wisata"
		if displayName != "" {
			greeting = "Halo, " + displayName
		}

		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Travelupa</title>
<script type="module" src="%s"></script>
</head>
<body>
<header><h1>Travelupa</h1><p>%s</p></header>
<main>
<section id="%s" data-init="@get('/destinations/stream')">`,
			datastarScript, templ.EscapeString(greeting), DestinationListID); err != nil {
			return err
		}
		if err := DestinationList(records).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</section>\n"); err != nil {
			return err
		}
		// The gallery belongs to the signed-in user; its list arrives over the stream.
		if displayName != "" {
			if _, err := fmt.Fprintf(w, `<section id="%s" data-init="@get('/gallery/stream')"></section>`+"\n", GalleryListID); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</main>\n</body>\n</html>\n")
		return err
	})
}

// DestinationList renders the cards for records, or an empty-state message.
func DestinationList(records []domain.DestinationRecord) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(records) == 0 {
			_, err := io.WriteString(w, `<p class="empty">Belum ada destinasi.</p>`)
			return err
		}
		if _, err := io.WriteString(w, `<ul class="destination-list">`); err != nil {
			return err
		}
		for _, rec := range records {
			if err := destinationCard(rec).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

func destinationCard(rec domain.DestinationRecord) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var image string
		switch {
		case rec.ImageURL != "":
			image = fmt.Sprintf(`<img src="%s" alt="%s" loading="lazy">`,
				templ.EscapeString(rec.ImageURL), templ.EscapeString(rec.Name))
		case rec.ImageResource != "":
			image = fmt.Sprintf(`<div class="image-resource" data-resource="%s"></div>`,
				templ.EscapeString(rec.ImageResource))
		default:
			image = `<div class="image-placeholder"></div>`
		}

		_, err := fmt.Fprintf(w, `<li class="destination" id="destination-%s">%s<h2>%s</h2><p>%s</p></li>`,
			templ.EscapeString(rec.ID), image, templ.EscapeString(rec.Name), templ.EscapeString(rec.Description))
		return err
	})
}

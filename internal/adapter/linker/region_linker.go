package linker

import (
	"unicode/utf8"

	"docrag/internal/domain"
)

// RegionLinker links each image to the chunks whose text span overlaps
// the image's position on the page. Text offsets and image regions live
// in different coordinate spaces, so the image's vertical extent is
// projected proportionally onto the page's rune range. An image whose
// projection overlaps no chunk links to every chunk of the page; a page
// with zero chunks records the image unlinked.
type RegionLinker struct{}

func New() RegionLinker {
	return RegionLinker{}
}

func (RegionLinker) Link(page domain.Page, chunks []domain.Chunk, images []domain.ImageAsset) []domain.ChunkImageLink {
	var links []domain.ChunkImageLink

	for _, img := range images {
		if len(chunks) == 0 {
			links = append(links, domain.ChunkImageLink{ImageID: img.ID})
			continue
		}

		start, end := projectSpan(page, img.Region)
		linked := false
		for _, c := range chunks {
			if c.Start < end && c.End > start {
				links = append(links, domain.ChunkImageLink{ChunkID: c.ID, ImageID: img.ID})
				linked = true
			}
		}
		if !linked {
			for _, c := range chunks {
				links = append(links, domain.ChunkImageLink{ChunkID: c.ID, ImageID: img.ID})
			}
		}
	}

	return links
}

// projectSpan maps an image's vertical extent onto the page text's rune
// range. A page height of zero (extractor reported none) projects to an
// empty span at the page start, which falls through to the
// all-chunks-of-page rule.
func projectSpan(page domain.Page, r domain.Region) (int, int) {
	total := utf8.RuneCountInString(page.Text)
	if page.Height <= 0 || total == 0 {
		return 0, 0
	}

	startFrac := clamp(r.Top / page.Height)
	endFrac := clamp((r.Top + r.Height) / page.Height)

	start := int(startFrac * float64(total))
	end := int(endFrac * float64(total))
	if end <= start {
		end = start + 1
	}
	return start, end
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

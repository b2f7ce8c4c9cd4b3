package app

import (
	"image"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/teldufalsari/simi/internal/errcode"
)

// pickAsset selects a cover image for an outbound --secret command that
// was not given an explicit --path. It lists *.png files directly under
// dir, picks one (randomly or the alphabetically first, per
// cfg.PickRandomly), and decodes it. The chosen file's path is returned
// alongside the decoded image so the caller can delete it afterward when
// cfg.DeleteImages is set -- but only then: a path supplied via --path is
// never a candidate for deletion.
func pickAsset(dir string, pickRandomly bool) (path string, img image.Image, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil, errcode.Wrap(errcode.Filesys, "cannot list assets directory", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) == ".png" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil, errcode.New(errcode.Filesys, "no PNG images found in assets directory")
	}
	sort.Strings(names)

	var chosen string
	if pickRandomly {
		chosen = names[rand.Intn(len(names))]
	} else {
		chosen = names[0]
	}

	full := filepath.Join(dir, chosen)
	img, err = loadPNG(full)
	if err != nil {
		return "", nil, err
	}
	return full, img, nil
}

// loadExplicitPNG decodes a user-supplied --path image. It is never a
// deletion candidate regardless of cfg.DeleteImages.
func loadExplicitPNG(path string) (image.Image, error) {
	return loadPNG(path)
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errcode.Wrap(errcode.Filesys, "cannot open image", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, errcode.Wrap(errcode.Filesys, "cannot decode PNG", err)
	}
	return img, nil
}

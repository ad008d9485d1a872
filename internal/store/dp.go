package store

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
)

// Display pictures are sharded two levels deep by uuid prefix:
// <storageRoot>/dp/<u0>/<u0u1>/<uuid>.<ext>, with a fixed 21x21
// thumbnail stored alongside as <uuid>_thumb.png.

const thumbSize = 21

func (s *Store) dpDir(userUUID string) string {
	return filepath.Join(s.storageRoot, "dp", userUUID[:1], userUUID[:2])
}

// SetDisplayPicture stores a user's display picture and regenerates
// its thumbnail. ext is the file extension without the dot.
func (s *Store) SetDisplayPicture(userUUID string, data []byte, ext string) error {
	dir := s.dpDir(userUUID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dp dir: %w", err)
	}
	if err := s.clearDisplayPicture(userUUID); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, userUUID+"."+ext), data, 0o644); err != nil {
		return fmt.Errorf("write dp: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// Unknown format: keep the picture, skip the thumbnail.
		return nil
	}
	thumb := scaleNearest(img, thumbSize, thumbSize)
	f, err := os.Create(filepath.Join(dir, userUUID+"_thumb.png"))
	if err != nil {
		return fmt.Errorf("create dp thumb: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, thumb); err != nil {
		return fmt.Errorf("encode dp thumb: %w", err)
	}
	return nil
}

// GetDisplayPicture returns a user's stored picture bytes (thumb
// selects the thumbnail), or (nil, nil) when none is stored.
func (s *Store) GetDisplayPicture(userUUID string, thumb bool) ([]byte, error) {
	dir := s.dpDir(userUUID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list dp dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		isThumb := strings.HasPrefix(name, userUUID+"_thumb")
		if !strings.HasPrefix(name, userUUID) || isThumb != thumb {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read dp: %w", err)
		}
		return data, nil
	}
	return nil, nil
}

func (s *Store) clearDisplayPicture(userUUID string) error {
	dir := s.dpDir(userUUID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list dp dir: %w", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), userUUID) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return fmt.Errorf("remove old dp: %w", err)
			}
		}
	}
	return nil
}

func scaleNearest(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	for y := 0; y < h; y++ {
		sy := sb.Min.Y + y*sb.Dy()/h
		for x := 0; x < w; x++ {
			sx := sb.Min.X + x*sb.Dx()/w
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

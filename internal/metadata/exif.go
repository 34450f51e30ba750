package metadata

import (
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// The EXIF 2.3 name for tag 0x8827 is registered under its older name.
var aliases = map[string]exif.FieldName{
	FieldPhotographicSensitivity: exif.ISOSpeedRatings,
}

type exifTags struct {
	x *exif.Exif
}

func (e exifTags) tag(name string) (*tiff.Tag, bool) {
	field := exif.FieldName(name)
	if alias, ok := aliases[name]; ok {
		field = alias
	}
	t, err := e.x.Get(field)
	if err != nil || t == nil {
		return nil, false
	}
	return t, true
}

func (e exifTags) String(name string) (string, bool) {
	t, ok := e.tag(name)
	if !ok || t.Format() != tiff.StringVal {
		return "", false
	}
	s, err := t.StringVal()
	if err != nil {
		return "", false
	}
	return s, true
}

func (e exifTags) Int(name string) (int, bool) {
	t, ok := e.tag(name)
	if !ok || t.Format() != tiff.IntVal || t.Count == 0 {
		return 0, false
	}
	v, err := t.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (e exifTags) Rationals(name string) ([][2]int64, bool) {
	t, ok := e.tag(name)
	if !ok || t.Format() != tiff.RatVal {
		return nil, false
	}
	out := make([][2]int64, 0, t.Count)
	for i := 0; i < int(t.Count); i++ {
		num, den, err := t.Rat2(i)
		if err != nil {
			return nil, false
		}
		out = append(out, [2]int64{num, den})
	}
	return out, true
}

// Package metadata turns an uploaded image's header and EXIF block into
// column updates for the photo row.
package metadata

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
)

// EXIF field names read by Extract.
const (
	FieldMake                    = "Make"
	FieldModel                   = "Model"
	FieldFocalLength             = "FocalLength"
	FieldExposureTime            = "ExposureTime"
	FieldFNumber                 = "FNumber"
	FieldISOSpeedRatings         = "ISOSpeedRatings"
	FieldPhotographicSensitivity = "PhotographicSensitivity"
	FieldDateTimeOriginal        = "DateTimeOriginal"
	FieldDateTime                = "DateTime"
	FieldGPSLatitude             = "GPSLatitude"
	FieldGPSLatitudeRef          = "GPSLatitudeRef"
	FieldGPSLongitude            = "GPSLongitude"
	FieldGPSLongitudeRef         = "GPSLongitudeRef"
)

var dateTimeLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
}

// Tags is read access to a decoded EXIF block. Each getter reports false
// when the field is absent or has a different type.
type Tags interface {
	String(name string) (string, bool)
	Int(name string) (int, bool)
	Rationals(name string) ([][2]int64, bool)
}

// Updates holds the photo columns derived from an image. Nil fields were
// not found and must not overwrite stored values.
type Updates struct {
	Width        *int
	Height       *int
	CameraMake   *string
	CameraModel  *string
	FocalLength  *string
	ExposureTime *string
	FNumber      *string
	ISO          *int
	TakenAt      *time.Time
	GPSLat       *float64
	GPSLng       *float64
}

// Fields lists the column names of the non-nil fields.
func (u Updates) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(u.Width != nil, "width")
	add(u.Height != nil, "height")
	add(u.CameraMake != nil, "camera_make")
	add(u.CameraModel != nil, "camera_model")
	add(u.FocalLength != nil, "focal_length")
	add(u.ExposureTime != nil, "exposure_time")
	add(u.FNumber != nil, "f_number")
	add(u.ISO != nil, "iso")
	add(u.TakenAt != nil, "taken_at")
	add(u.GPSLat != nil, "gps_lat")
	add(u.GPSLng != nil, "gps_lng")
	return fields
}

func (u Updates) Empty() bool {
	return len(u.Fields()) == 0
}

// Read decodes the image header of data for its size and extracts whatever
// EXIF it carries. Images without EXIF yield only width and height.
func Read(data []byte, loc *time.Location) (Updates, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Updates{}, fmt.Errorf("failed to decode image: %w", err)
	}

	return Extract(cfg.Width, cfg.Height, decodeExif(data), loc), nil
}

// decodeExif returns nil when there is no EXIF block or it fails the size
// checks; only a checked block is handed to goexif.
func decodeExif(data []byte) Tags {
	block, ok := exifBlock(data)
	if !ok || checkTIFF(block) != nil {
		return nil
	}
	x, err := exif.Decode(bytes.NewReader(block))
	if err != nil {
		return nil
	}
	return exifTags{x: x}
}

// Extract builds updates from an already decoded image size and EXIF tags.
// tags may be nil. Naive timestamps are interpreted in loc.
func Extract(width, height int, tags Tags, loc *time.Location) Updates {
	if loc == nil {
		loc = time.UTC
	}
	u := Updates{Width: &width, Height: &height}
	if tags == nil {
		return u
	}

	u.CameraMake = stringField(tags, FieldMake)
	u.CameraModel = stringField(tags, FieldModel)
	u.FocalLength = decimalField(tags, FieldFocalLength)
	u.ExposureTime = fractionField(tags, FieldExposureTime)
	u.FNumber = decimalField(tags, FieldFNumber)

	if iso, ok := tags.Int(FieldISOSpeedRatings); ok && iso != 0 {
		u.ISO = &iso
	} else if iso, ok := tags.Int(FieldPhotographicSensitivity); ok && iso != 0 {
		u.ISO = &iso
	}

	raw, _ := tags.String(FieldDateTimeOriginal)
	if strings.TrimSpace(raw) == "" {
		raw, _ = tags.String(FieldDateTime)
	}
	u.TakenAt = parseTakenAt(raw, loc)

	u.GPSLat, u.GPSLng = gps(tags)
	return u
}

func parseTakenAt(raw string, loc *time.Location) *time.Time {
	raw = strings.Trim(raw, "\x00 ")
	if raw == "" {
		return nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t
		}
	}
	return nil
}

// gps only converts when both coordinates and both refs are present.
// Either coordinate may still be dropped if its value is malformed.
func gps(tags Tags) (*float64, *float64) {
	lat, latOK := tags.Rationals(FieldGPSLatitude)
	latRef, latRefOK := tags.String(FieldGPSLatitudeRef)
	lng, lngOK := tags.Rationals(FieldGPSLongitude)
	lngRef, lngRefOK := tags.String(FieldGPSLongitudeRef)
	if !latOK || !latRefOK || !lngOK || !lngRefOK || latRef == "" || lngRef == "" {
		return nil, nil
	}
	return dmsToDegrees(lat, latRef), dmsToDegrees(lng, lngRef)
}

func dmsToDegrees(dms [][2]int64, ref string) *float64 {
	if len(dms) < 3 {
		return nil
	}
	var parts [3]float64
	for i := 0; i < 3; i++ {
		if dms[i][1] == 0 {
			return nil
		}
		parts[i] = float64(dms[i][0]) / float64(dms[i][1])
	}
	deg := parts[0] + parts[1]/60 + parts[2]/3600
	switch strings.ToUpper(strings.Trim(ref, "\x00 ")) {
	case "S", "W":
		deg = -deg
	}
	return &deg
}

func stringField(tags Tags, name string) *string {
	s, ok := tags.String(name)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if s == "" {
		return nil
	}
	return &s
}

func firstRational(tags Tags, name string) (int64, int64, bool) {
	rats, ok := tags.Rationals(name)
	if !ok || len(rats) == 0 || rats[0][1] == 0 {
		return 0, 0, false
	}
	return rats[0][0], rats[0][1], true
}

// decimalField renders a rational like 28/10 as "2.8".
func decimalField(tags Tags, name string) *string {
	num, den, ok := firstRational(tags, name)
	if !ok {
		return nil
	}
	s := strconv.FormatFloat(float64(num)/float64(den), 'f', -1, 64)
	return &s
}

// fractionField renders a rational in lowest terms, e.g. 10/1250 as "1/125".
func fractionField(tags Tags, name string) *string {
	num, den, ok := firstRational(tags, name)
	if !ok {
		return nil
	}
	r := big.NewRat(num, den)
	s := r.RatString()
	return &s
}

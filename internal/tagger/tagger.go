// Package tagger writes textual metadata and embedded cover art into
// downloaded audio files, branching on the container format.
package tagger

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

// ErrUnsupportedFormat means the container cannot carry textual tags.
// This is fatal to a download job: the published artifact is expected
// to carry metadata.
var ErrUnsupportedFormat = errors.New("unsupported audio container")

// Format identifies the container family of a local audio file.
type Format int

const (
	FormatUnknown Format = iota
	FormatFLAC
	FormatMP3
)

func (f Format) String() string {
	switch f {
	case FormatFLAC:
		return "flac"
	case FormatMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// DetectFormat classifies a file by the extension the fetch stage assigned
// from the response content type.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return FormatFLAC
	case ".mp3":
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// Metadata is the uniform textual tag set written to every download.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// WriteTags writes title/artist/album into the file. An unknown or
// unreadable container is an error; cover art is handled separately by
// a CoverEmbedder.
func WriteTags(path string, meta Metadata) error {
	switch DetectFormat(path) {
	case FormatFLAC:
		return writeFLACTags(path, meta)
	case FormatMP3:
		return writeMP3Tags(path, meta)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func writeFLACTags(path string, meta Metadata) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	// Drop any existing VORBIS_COMMENT so we don't stack duplicates.
	var kept []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			kept = append(kept, block)
		}
	}
	f.Meta = kept

	comment := flacvorbis.New()
	if err := comment.Add(flacvorbis.FIELD_TITLE, meta.Title); err != nil {
		return err
	}
	if err := comment.Add(flacvorbis.FIELD_ARTIST, meta.Artist); err != nil {
		return err
	}
	if err := comment.Add(flacvorbis.FIELD_ALBUM, meta.Album); err != nil {
		return err
	}
	block := comment.Marshal()
	f.Meta = append(f.Meta, &block)

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save flac tags: %w", err)
	}
	return nil
}

func writeMP3Tags(path string, meta Metadata) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer tag.Close()

	tag.SetTitle(meta.Title)
	tag.SetArtist(meta.Artist)
	tag.SetAlbum(meta.Album)

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save id3 tags: %w", err)
	}
	return nil
}

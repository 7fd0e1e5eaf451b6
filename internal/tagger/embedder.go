package tagger

import (
	"fmt"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	flac "github.com/go-flac/go-flac"
)

// CoverEmbedder attaches binary cover art to an audio file. Embedding
// requires knowing the concrete container, so the concrete embedder is
// selected once after format detection.
type CoverEmbedder interface {
	Embed(path string, image []byte) error
}

// EmbedderFor returns the embedder for a detected format. Unrecognized
// containers get a no-op embedder: skipping the picture never fails the
// textual tags already written.
func EmbedderFor(format Format) CoverEmbedder {
	switch format {
	case FormatFLAC:
		return flacEmbedder{}
	case FormatMP3:
		return id3Embedder{}
	default:
		return noopEmbedder{}
	}
}

type flacEmbedder struct{}

func (flacEmbedder) Embed(path string, image []byte) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac for cover: %w", err)
	}

	picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Cover", image, "image/jpeg")
	if err != nil {
		return fmt.Errorf("build flac picture block: %w", err)
	}
	block := picture.Marshal()
	f.Meta = append(f.Meta, &block)

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save flac cover: %w", err)
	}
	return nil
}

type id3Embedder struct{}

func (id3Embedder) Embed(path string, image []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open mp3 for cover: %w", err)
	}
	defer tag.Close()

	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     image,
	})

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save mp3 cover: %w", err)
	}
	return nil
}

type noopEmbedder struct{}

func (noopEmbedder) Embed(string, []byte) error { return nil }

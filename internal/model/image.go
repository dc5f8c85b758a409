package model

// ImageKind identifies which variant an Image holds.
type ImageKind int

// Image variants.
const (
	ImageUnset ImageKind = iota
	ImagePending
	ImageStored
)

// Image is the image attached to an add or edit request. It is either unset,
// pending (raw file bytes still to be uploaded) or stored (a reference that
// already exists in blob storage).
type Image struct {
	kind     ImageKind
	data     []byte
	filename string
	url      string
}

// NoImage returns the unset variant.
func NoImage() Image {
	return Image{}
}

// PendingImage returns an image that still has to be uploaded.
func PendingImage(data []byte, filename string) Image {
	return Image{kind: ImagePending, data: data, filename: filename}
}

// StoredImage returns an image that is already in blob storage.
func StoredImage(url string) Image {
	if url == "" {
		return NoImage()
	}
	return Image{kind: ImageStored, url: url}
}

// Kind returns the variant.
func (i Image) Kind() ImageKind { return i.kind }

// Data returns the file bytes of a pending image.
func (i Image) Data() []byte { return i.data }

// Filename returns the original filename of a pending image.
func (i Image) Filename() string { return i.filename }

// URL returns the reference of a stored image.
func (i Image) URL() string { return i.url }

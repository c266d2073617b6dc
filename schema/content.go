package schema

// ContentType discriminates the kind of a ContentPart.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentAudio ContentType = "audio"
	ContentVideo ContentType = "video"
	ContentFile  ContentType = "file"
)

// ContentPart is one piece of a message's content.
type ContentPart interface {
	isContentPart()
	PartType() ContentType
}

// TextPart is plain text content.
type TextPart struct {
	Text string
}

func (TextPart) isContentPart()        {}
func (TextPart) PartType() ContentType { return ContentText }

// ImagePart references or embeds image content.
type ImagePart struct {
	Data     []byte
	URL      string
	MimeType string
}

func (ImagePart) isContentPart()        {}
func (ImagePart) PartType() ContentType { return ContentImage }

// AudioPart references or embeds audio content.
type AudioPart struct {
	Data       []byte
	URL        string
	Format     string
	SampleRate int
}

func (AudioPart) isContentPart()        {}
func (AudioPart) PartType() ContentType { return ContentAudio }

// VideoPart references or embeds video content.
type VideoPart struct {
	Data     []byte
	URL      string
	MimeType string
}

func (VideoPart) isContentPart()        {}
func (VideoPart) PartType() ContentType { return ContentVideo }

// FilePart references or embeds an arbitrary file attachment.
type FilePart struct {
	Data     []byte
	Name     string
	URL      string
	MimeType string
}

func (FilePart) isContentPart()        {}
func (FilePart) PartType() ContentType { return ContentFile }

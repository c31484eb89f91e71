package transfer

// MediaUpload is one attachment as it arrives from the editor: raw
// bytes plus alt text, ordered by position in the form.
type MediaUpload struct {
	Blob []byte
	Alt  string
}

// NoteSourcePatch carries the fields an edit may change. Nil pointers
// mean "leave as is".
type NoteSourcePatch struct {
	Content    *string  `json:"content"`
	Tags       []string `json:"tags"`
	Visibility *string  `json:"visibility"`
	Language   *string  `json:"language"`
}

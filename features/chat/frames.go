package chat

// Frame types exchanged with the client. Every frame is a flat JSON object
// discriminated by "type".
const (
	TypeAuth       = "auth"
	TypeAuthResult = "auth_result"
	TypeChat       = "chat"
	TypeUpload     = "upload"
	TypeQuit       = "quit"

	TypeRetrievalInfo = "retrieval_info"
	TypeChunk         = "chunk"
	TypeDone          = "done"
	TypeUploadResult  = "upload_result"
	TypeError         = "error"
)

// Frame is the wire representation of every client and server message.
// Pointer fields distinguish "absent" from zero so ok:false and count:0
// serialize.
type Frame struct {
	Type string `json:"type"`

	// auth
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"display_name,omitempty"`

	// auth_result
	OK *bool `json:"ok,omitempty"`

	// chat and chunk
	Text string `json:"text,omitempty"`

	// upload: path on disk, with optional inline text overriding file
	// extraction
	Path string `json:"path,omitempty"`

	// retrieval_info
	Count   *int     `json:"count,omitempty"`
	Sources []string `json:"sources,omitempty"`

	// upload_result
	Status     string `json:"status,omitempty"`
	ChunkCount *int   `json:"chunk_count,omitempty"`

	// upload_result failure detail and error frames
	Message string `json:"message,omitempty"`
}

func authResultFrame(ok bool) Frame {
	return Frame{Type: TypeAuthResult, OK: &ok}
}

func retrievalInfoFrame(count int, sources []string) Frame {
	return Frame{Type: TypeRetrievalInfo, Count: &count, Sources: sources}
}

func chunkFrame(text string) Frame {
	return Frame{Type: TypeChunk, Text: text}
}

func doneFrame() Frame {
	return Frame{Type: TypeDone}
}

func uploadResultFrame(status string, chunkCount int, message string) Frame {
	return Frame{Type: TypeUploadResult, Status: status, ChunkCount: &chunkCount, Message: message}
}

func errorFrame(message string) Frame {
	return Frame{Type: TypeError, Message: message}
}

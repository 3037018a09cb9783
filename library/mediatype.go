package library

const MediaTypeUnknown = "unknown"

var mediaTypes = map[string][]string{
	"image":    {"png", "jpg", "jpeg", "jfif", "gif", "webp", "bmp", "tif", "tiff", "heic", "heif", "avif", "svg", "ico", "psd", "raw", "cr2", "nef", "dng", "arw", "exr"},
	"video":    {"mp4", "mkv", "mov", "avi", "webm", "wmv", "flv", "m4v", "mpg", "mpeg", "3gp", "ogv"},
	"audio":    {"mp3", "wav", "flac", "ogg", "oga", "opus", "m4a", "aac", "wma", "aiff", "mid", "midi"},
	"document": {"pdf", "doc", "docx", "odt", "rtf", "xls", "xlsx", "ods", "ppt", "pptx", "odp", "epub"},
	"archive":  {"zip", "rar", "7z", "tar", "gz", "bz2", "xz", "zst"},
	"text":     {"txt", "md", "csv", "json", "xml", "yaml", "yml", "toml", "ini", "log", "html", "css", "js", "go", "py"},
	"font":     {"ttf", "otf", "woff", "woff2"},
	"model":    {"obj", "stl", "fbx", "gltf", "glb", "blend", "3mf"},
}

var mediaTypeByFileType = func() map[string]string {
	result := map[string]string{}
	for mediaType, fileTypes := range mediaTypes {
		for _, fileType := range fileTypes {
			result[fileType] = mediaType
		}
	}
	return result
}()

// MediaTypeForFileType returns the media category like "image" for the given lower case file type like "png".
func MediaTypeForFileType(fileType string) string {
	if mediaType, ok := mediaTypeByFileType[fileType]; ok {
		return mediaType
	}
	return MediaTypeUnknown
}

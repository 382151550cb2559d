package constants

import "strings"

// RenderMode decides how an attached source document is shown in the
// split-screen review: natively in an iframe, converted to an HTML table,
// or not at all.
type RenderMode string

const (
	RenderInline       RenderMode = "INLINE"    // browser-renderable, shown in an iframe
	RenderCSVTable     RenderMode = "CSV_TABLE" // parsed and rendered as a generated HTML table
	RenderNotSupported RenderMode = "NOT_SUPPORTED"
)

// FileType describes one entry in the fixed extension lookup table.
type FileType struct {
	MIME   string
	Render RenderMode
}

// fileTypes is the fixed extension -> MIME/render table. It is a lookup,
// not runtime configuration.
var fileTypes = map[string]FileType{
	"pdf":  {MIME: "application/pdf", Render: RenderInline},
	"png":  {MIME: "image/png", Render: RenderInline},
	"jpg":  {MIME: "image/jpeg", Render: RenderInline},
	"jpeg": {MIME: "image/jpeg", Render: RenderInline},
	"gif":  {MIME: "image/gif", Render: RenderInline},
	"svg":  {MIME: "image/svg+xml", Render: RenderInline},
	"htm":  {MIME: "text/html", Render: RenderInline},
	"html": {MIME: "text/html", Render: RenderInline},
	"txt":  {MIME: "text/plain", Render: RenderInline},
	"csv":  {MIME: "text/csv", Render: RenderCSVTable},
	"doc":  {MIME: "application/msword", Render: RenderNotSupported},
	"docx": {MIME: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Render: RenderNotSupported},
	"xls":  {MIME: "application/vnd.ms-excel", Render: RenderNotSupported},
	"xlsx": {MIME: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Render: RenderNotSupported},
	"zip":  {MIME: "application/zip", Render: RenderNotSupported},
}

// LookupFileType resolves a file extension (with or without leading dot,
// any case) against the fixed table. Unknown extensions are reported as
// not renderable.
func LookupFileType(ext string) FileType {
	if ft, ok := fileTypes[NormalizeExt(ext)]; ok {
		return ft
	}
	return FileType{MIME: "application/octet-stream", Render: RenderNotSupported}
}

// AllowedExtensions holds the file extensions accepted for source documents.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

package syncd

import (
	"strings"
)

// forbiddenPathChars are the literal characters excluded from paths by
// spec §3/§4.2, beyond the 0x00-0x1F control-code range.
const forbiddenPathChars = `<>:"|?*`

// ValidatePath enforces the path grammar of spec §4.2: 1-1000 bytes,
// none of them a control character or a member of forbiddenPathChars.
func ValidatePath(path string) error {
	if path == "" {
		return NewError(ErrCodeValidation, "path is required")
	}
	if len(path) > MaxPathLength {
		return NewError(ErrCodeValidation, "path exceeds max length")
	}
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c <= 0x1f {
			return NewError(ErrCodeValidation, "path must not contain control characters")
		}
		if strings.IndexByte(forbiddenPathChars, c) >= 0 {
			return NewError(ErrCodeValidation, "path contains a forbidden character")
		}
	}
	return nil
}

// ValidateContentSize enforces the 10 MiB stored-representation limit
// uniformly as UTF-8 byte length, per spec §9's fix of the source's
// inconsistent string-vs-byte-length measurement.
func ValidateContentSize(content string) error {
	if len(content) > MaxContentSize {
		return NewError(ErrCodeValidation, "content exceeds max size")
	}
	return nil
}

// binaryExtensions is the fixed, case-insensitive set from the
// Glossary's "Binary-extension set".
var binaryExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "bmp": true,
	"webp": true, "ico": true, "svg": true, "tiff": true, "tif": true,
	"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true,
	"ppt": true, "pptx": true, "odt": true, "ods": true, "odp": true,
	"zip": true, "rar": true, "7z": true, "tar": true, "gz": true,
	"bz2": true, "xz": true, "mp3": true, "wav": true, "ogg": true,
	"flac": true, "aac": true, "wma": true, "m4a": true, "mp4": true,
	"avi": true, "mkv": true, "mov": true, "wmv": true, "flv": true,
	"webm": true, "exe": true, "dll": true, "so": true, "dylib": true,
	"bin": true, "ttf": true, "otf": true, "woff": true, "woff2": true,
	"eot": true, "db": true, "sqlite": true, "sqlite3": true,
}

// ExtractExtension derives the lowercase extension (without the dot)
// from the final path segment, per spec §4.2. It returns "" when the
// path has no extension (including dotfiles like ".gitignore").
func ExtractExtension(path string) string {
	seg := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		seg = path[i+1:]
	}
	dot := strings.LastIndexByte(seg, '.')
	if dot <= 0 {
		return ""
	}
	ext := strings.ToLower(seg[dot+1:])
	return ext
}

// IsBinaryExtension reports whether ext (already lowercased) is in the
// fixed binary-extension set.
func IsBinaryExtension(ext string) bool {
	return binaryExtensions[ext]
}

// DeriveMetadata recomputes extension/isBinary from path. Never accept
// these from clients directly (spec invariant 3/4).
func DeriveMetadata(path string) (extension string, isBinary bool) {
	extension = ExtractExtension(path)
	return extension, IsBinaryExtension(extension)
}

// NormalizeExtensionFilter splits and normalizes a comma-separated
// extension filter, per spec §4.4.
func NormalizeExtensionFilter(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// byteLen returns the UTF-8 byte length of the stored representation;
// for already-encoded Go strings this is simply len(s), but the helper
// documents the invariant (spec §3's "size == byteLength(content)")
// at the one place every write path calls through.
func byteLen(s string) int64 {
	return int64(len(s))
}

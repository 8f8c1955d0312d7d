package port

// FileWalker lists candidate files for ingestion.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path string
	// RelPath is slash-separated and relative to the walked root.
	RelPath string
	ModTime int64
	Size    int64
}

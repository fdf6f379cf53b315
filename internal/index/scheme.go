package index

var (
	bPosts        = []byte("posts")         // key -> ordered metadata JSON
	bIdxPublished = []byte("idx_published") // invPublished(8) + 0x00 + key -> 1
	bUploaded     = []byte("uploaded")      // asset key -> unix seconds of upload
)

var buckets = [][]byte{bPosts, bIdxPublished, bUploaded}

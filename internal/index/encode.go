package index

import "encoding/binary"

// key = invPublished(8) + 0x00 + postKey
//
// The sign bit is flipped before inverting so pre-1970 timestamps still sort
// after newer ones.
func makePublishedKey(publishedAt int64, postKey string) []byte {
	inv := ^(uint64(publishedAt) ^ (1 << 63))

	buf := make([]byte, 8, 8+1+len(postKey))
	binary.BigEndian.PutUint64(buf, inv)
	buf = append(buf, 0x00)
	buf = append(buf, postKey...)
	return buf
}

func postKeyFromPublishedKey(k []byte) string {
	if len(k) < 8+2 {
		return ""
	}
	if k[8] != 0x00 {
		return ""
	}
	return string(k[9:])
}

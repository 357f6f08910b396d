package geom

// Field widths of a packed volume key. Keys are injective for
// x,z in [-2^20, 2^20) and y in [-2^19, 2^19).
const (
	keyBitsX = 21
	keyBitsY = 20
	keyBitsZ = 21

	keyMaskX = 1<<keyBitsX - 1
	keyMaskY = 1<<keyBitsY - 1
	keyMaskZ = 1<<keyBitsZ - 1
)

// VolumeKey packs a volume origin into a single int64 cache key.
func VolumeKey(v Vec3i) int64 {
	x := int64(v.X) & keyMaskX
	y := int64(v.Y) & keyMaskY
	z := int64(v.Z) & keyMaskZ
	return x | y<<keyBitsX | z<<(keyBitsX+keyBitsY)
}

// KeyInRange reports whether VolumeKey is lossless for v.
func KeyInRange(v Vec3i) bool {
	return inSigned(v.X, keyBitsX) && inSigned(v.Y, keyBitsY) && inSigned(v.Z, keyBitsZ)
}

func inSigned(v, bits int) bool {
	lim := 1 << (bits - 1)
	return v >= -lim && v < lim
}

package models

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
)

// GenerateConfigHash is the md5 of the config's canonical JSON. Defaults are
// applied first so equivalent requests hash equally.
func GenerateConfigHash(cfg ForecastConfig) string {
	b, err := json.Marshal(cfg.WithDefaults())
	if err != nil {
		return ""
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// DataHash is the sha256 of the little-endian float64 encoding of data.
func DataHash(data []float64) string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, v := range data {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ModelHash identifies a cached model by algorithm, config and training data.
func ModelHash(algorithm, configHash, dataHash string) string {
	sum := sha256.Sum256([]byte(algorithm + "|" + configHash + "|" + dataHash))
	return hex.EncodeToString(sum[:])
}

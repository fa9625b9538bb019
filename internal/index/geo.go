package index

import (
	"fmt"
	"math"

	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

const earthRadiusKM = 6371.0088

// geoFields reads a (lat, lon) pair from either a two-field convention
// (<col>_lat / <col>_lon) or a single object field holding {"lat":..,
// "lon":..} encoded as two sub-keys "<col>.lat"/"<col>.lon" in the same
// flat field map.
func geoFields(e *entity.Entity, col string) (lat, lon float64, ok bool, err error) {
	if e == nil {
		return 0, 0, false, nil
	}
	latV, latOk, lerr := e.Get(col + "_lat")
	if lerr != nil {
		return 0, 0, false, lerr
	}
	lonV, lonOk, lerr := e.Get(col + "_lon")
	if lerr != nil {
		return 0, 0, false, lerr
	}
	if !latOk || !lonOk {
		if latV, latOk, lerr = e.Get(col + ".lat"); lerr != nil {
			return 0, 0, false, lerr
		}
		if lonV, lonOk, lerr = e.Get(col + ".lon"); lerr != nil {
			return 0, 0, false, lerr
		}
	}
	if !latOk || !lonOk {
		return 0, 0, false, nil
	}
	latF, ok1 := latV.AsFloat()
	lonF, ok2 := lonV.AsFloat()
	if !ok1 || !ok2 {
		return 0, 0, false, nil
	}
	return latF, lonF, true, nil
}

func applyGeo(txn *kv.Txn, meta Meta, pk string, old, newEnt *entity.Entity) error {
	col := meta.Columns[0]
	bits := meta.Params.GeoPrecision * 4
	if bits == 0 {
		bits = defaultGeoPrecisionHexChars * 4
	}

	oldLat, oldLon, oldOk, err := geoFields(old, col)
	if err != nil {
		return err
	}
	newLat, newLon, newOk, err := geoFields(newEnt, col)
	if err != nil {
		return err
	}

	var oldHash, newHash string
	if oldOk {
		oldHash = EncodeGeohash(oldLat, oldLon, bits)
	}
	if newOk {
		newHash = EncodeGeohash(newLat, newLon, bits)
	}

	if oldOk && (!newOk || oldHash != newHash) {
		if err := txn.Delete(keyschema.Geo(meta.Table, col, oldHash, pk)); err != nil {
			return err
		}
	}
	if newOk && (!oldOk || oldHash != newHash) {
		if err := txn.Put(keyschema.Geo(meta.Table, col, newHash, pk), nil); err != nil {
			return err
		}
	}
	return nil
}

// EncodeGeohash interleaves the bits of latitude and longitude into a
// fixed-precision Z-order hash, rendered as lowercase hex of an unsigned
// 64-bit interleaved value.
func EncodeGeohash(lat, lon float64, bits int) string {
	if bits <= 0 || bits > 64 {
		bits = defaultGeoPrecisionHexChars * 4
	}
	latBits := quantize(lat, -90, 90, bits/2)
	lonBits := quantize(lon, -180, 180, bits-bits/2)
	interleaved := interleave(latBits, lonBits, bits)
	hexChars := (bits + 3) / 4
	return fmt.Sprintf("%0*x", hexChars, interleaved)
}

// DecodeGeohash recovers an approximate (lat, lon) from a hash produced by
// EncodeGeohash at the same bit precision.
func DecodeGeohash(hash string, bits int) (lat, lon float64, err error) {
	if bits <= 0 || bits > 64 {
		bits = defaultGeoPrecisionHexChars * 4
	}
	var v uint64
	_, err = fmt.Sscanf(hash, "%x", &v)
	if err != nil {
		return 0, 0, fmt.Errorf("index: invalid geohash %q: %w", hash, err)
	}
	latBits, lonBits := deinterleave(v, bits)
	lat = dequantize(latBits, -90, 90, bits/2)
	lon = dequantize(lonBits, -180, 180, bits-bits/2)
	return lat, lon, nil
}

func quantize(v, lo, hi float64, bits int) uint64 {
	span := hi - lo
	norm := (v - lo) / span
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	// Scaling by 2^bits (not 2^bits-1) keeps a lower-precision hash a prefix
	// of the same point's higher-precision hash.
	max := uint64(1)<<uint(bits) - 1
	q := uint64(norm * float64(uint64(1)<<uint(bits)))
	if q > max {
		q = max
	}
	return q
}

func dequantize(q uint64, lo, hi float64, bits int) float64 {
	norm := float64(q) / float64(uint64(1)<<uint(bits))
	return lo + norm*(hi-lo)
}

// interleave merges the bits of a (latBits, lonBits) pair into a single
// Z-order value, alternating lon/lat bits from most to least significant.
func interleave(latBits, lonBits uint64, totalBits int) uint64 {
	var out uint64
	latLen := totalBits / 2
	lonLen := totalBits - latLen
	pos := totalBits - 1
	for i := lonLen - 1; i >= 0; i-- {
		out |= ((lonBits >> uint(i)) & 1) << uint(pos)
		pos--
		if li := i - (lonLen - latLen); li >= 0 && li < latLen {
			out |= ((latBits >> uint(li)) & 1) << uint(pos)
			pos--
		}
	}
	return out
}

func deinterleave(v uint64, totalBits int) (latBits, lonBits uint64) {
	latLen := totalBits / 2
	lonLen := totalBits - latLen
	pos := totalBits - 1
	for i := lonLen - 1; i >= 0; i-- {
		bit := (v >> uint(pos)) & 1
		lonBits |= bit << uint(i)
		pos--
		if li := i - (lonLen - latLen); li >= 0 && li < latLen {
			bit := (v >> uint(pos)) & 1
			latBits |= bit << uint(li)
			pos--
		}
	}
	return latBits, lonBits
}

// Haversine returns the great-circle distance in kilometers between two
// (lat, lon) points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// ScanGeoBox returns every pk in table.col whose stored point falls within
// the bounding box [minLat,maxLat] x [minLon,maxLon], after prefix-scanning
// the geohash cells covering the box and post-filtering exact containment.
func (m *Manager) ScanGeoBox(table, col string, minLat, minLon, maxLat, maxLon float64, precisionHexChars int) ([]string, error) {
	if precisionHexChars == 0 {
		precisionHexChars = defaultGeoPrecisionHexChars
	}
	bits := precisionHexChars * 4
	prefixes := coveringPrefixes(minLat, minLon, maxLat, maxLon, bits)

	var out []string
	seen := map[string]bool{}
	for _, prefix := range prefixes {
		scanPrefix := keyschema.GeoPrefix(table, col, prefix)
		err := m.store.ScanPrefix(scanPrefix, func(k, _ []byte) (bool, error) {
			pk := lastSegment(k)
			hash := segmentBefore(k, pk)
			lat, lon, derr := DecodeGeohash(hash, bits)
			if derr != nil {
				return true, nil
			}
			if lat >= minLat && lat <= maxLat && lon >= minLon && lon <= maxLon && !seen[pk] {
				seen[pk] = true
				out = append(out, pk)
			}
			return true, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ScanGeoRadius returns every pk within radiusKM of (lat, lon), built atop
// ScanGeoBox with a conservative enclosing bounding box and a Haversine
// post-filter.
func (m *Manager) ScanGeoRadius(table, col string, lat, lon, radiusKM float64, precisionHexChars int) ([]string, error) {
	// 1 degree of latitude is ~111km; longitude shrinks with cos(lat).
	dLat := radiusKM / 111.0
	dLon := radiusKM / (111.0 * math.Max(0.01, math.Cos(lat*math.Pi/180)))
	candidates, err := m.ScanGeoBox(table, col, lat-dLat, lon-dLon, lat+dLat, lon+dLon, precisionHexChars)
	if err != nil {
		return nil, err
	}

	bits := precisionHexChars * 4
	if bits == 0 {
		bits = defaultGeoPrecisionHexChars * 4
	}
	var out []string
	for _, pk := range candidates {
		ok, plat, plon, err := m.geoCentroidForPK(table, col, pk, bits)
		if err != nil || !ok {
			continue
		}
		if Haversine(lat, lon, plat, plon) <= radiusKM {
			out = append(out, pk)
		}
	}
	return out, nil
}

func (m *Manager) geoCentroidForPK(table, col, pk string, bits int) (ok bool, lat, lon float64, err error) {
	prefix := keyschema.GeoPrefix(table, col, "")
	var found bool
	serr := m.store.ScanPrefix(prefix, func(k, _ []byte) (bool, error) {
		candidatePK := lastSegment(k)
		if candidatePK != pk {
			return true, nil
		}
		hash := segmentBefore(k, pk)
		plat, plon, derr := DecodeGeohash(hash, bits)
		if derr != nil {
			return true, nil
		}
		lat, lon, found = plat, plon, true
		return false, nil
	})
	return found, lat, lon, serr
}

// segmentBefore returns the ':'-delimited segment immediately preceding
// the trailing pk segment (i.e. the geohash token).
func segmentBefore(key []byte, pk string) string {
	trimmed := key[:len(key)-len(pk)-1]
	return lastSegment(trimmed)
}

// coveringPrefixes returns the shortest set of geohash prefixes whose
// cells together cover the given bounding box, by shrinking precision
// until the box's corners share a prefix (or a small bound is hit).
func coveringPrefixes(minLat, minLon, maxLat, maxLon float64, bits int) []string {
	hexChars := (bits + 3) / 4
	for p := hexChars; p >= 1; p-- {
		pb := p * 4
		h1 := EncodeGeohash(minLat, minLon, pb)[:p]
		h2 := EncodeGeohash(maxLat, maxLon, pb)[:p]
		if h1 == h2 {
			return []string{h1}
		}
	}
	// No shared prefix at any precision: the box straddles a top-level
	// cell boundary, so fall back to a full-column scan.
	return []string{""}
}

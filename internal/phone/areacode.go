// Package phone normalizes, validates and compares Korean-style phone and fax
// numbers.
package phone

import "sort"

// AreaCode describes a dialing prefix and the total digit counts it allows.
type AreaCode struct {
	Prefix    string
	Region    string
	MinLength int
	MaxLength int
	// Mobile marks mobile and VoIP prefixes, which always use a four digit
	// exchange when the number has eleven digits.
	Mobile bool
}

// areaCodes is the dialing prefix table. Seoul is the only two digit prefix.
var areaCodes = []AreaCode{
	{Prefix: "02", Region: "Seoul", MinLength: 9, MaxLength: 10},
	{Prefix: "031", Region: "Gyeonggi", MinLength: 10, MaxLength: 11},
	{Prefix: "032", Region: "Incheon", MinLength: 10, MaxLength: 11},
	{Prefix: "033", Region: "Gangwon", MinLength: 10, MaxLength: 11},
	{Prefix: "041", Region: "Chungnam", MinLength: 10, MaxLength: 11},
	{Prefix: "042", Region: "Daejeon", MinLength: 10, MaxLength: 11},
	{Prefix: "043", Region: "Chungbuk", MinLength: 10, MaxLength: 11},
	{Prefix: "044", Region: "Sejong", MinLength: 10, MaxLength: 11},
	{Prefix: "051", Region: "Busan", MinLength: 10, MaxLength: 11},
	{Prefix: "052", Region: "Ulsan", MinLength: 10, MaxLength: 11},
	{Prefix: "053", Region: "Daegu", MinLength: 10, MaxLength: 11},
	{Prefix: "054", Region: "Gyeongbuk", MinLength: 10, MaxLength: 11},
	{Prefix: "055", Region: "Gyeongnam", MinLength: 10, MaxLength: 11},
	{Prefix: "061", Region: "Jeonnam", MinLength: 10, MaxLength: 11},
	{Prefix: "062", Region: "Gwangju", MinLength: 10, MaxLength: 11},
	{Prefix: "063", Region: "Jeonbuk", MinLength: 10, MaxLength: 11},
	{Prefix: "064", Region: "Jeju", MinLength: 10, MaxLength: 11},
	{Prefix: "010", Region: "Mobile", MinLength: 11, MaxLength: 11, Mobile: true},
	{Prefix: "017", Region: "Mobile", MinLength: 10, MaxLength: 11, Mobile: true},
	{Prefix: "070", Region: "VoIP", MinLength: 11, MaxLength: 11, Mobile: true},
}

// byLongestPrefix holds areaCodes ordered so the first match is the longest.
var byLongestPrefix = func() []AreaCode {
	out := make([]AreaCode, len(areaCodes))
	copy(out, areaCodes)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Prefix) > len(out[j].Prefix)
	})
	return out
}()

// AreaCodes returns a copy of the area-code table.
func AreaCodes() []AreaCode {
	out := make([]AreaCode, len(areaCodes))
	copy(out, areaCodes)
	return out
}

// LookupAreaCode returns the longest area code that prefixes digits.
func LookupAreaCode(digits string) (AreaCode, bool) {
	for _, ac := range byLongestPrefix {
		if len(digits) >= len(ac.Prefix) && digits[:len(ac.Prefix)] == ac.Prefix {
			return ac, true
		}
	}
	return AreaCode{}, false
}

package phone

// IsDuplicate reports whether phone and fax are the same line. Both must
// validate. Numbers sharing area code and exchange but differing in the
// subscriber part are separate lines of the same organization and are not
// duplicates.
func IsDuplicate(phone, fax string) bool {
	p, reason := Parse(phone)
	if reason != ReasonNone {
		return false
	}
	f, reason := Parse(fax)
	if reason != ReasonNone {
		return false
	}
	return p.String() == f.String()
}

// SameExchange reports whether two valid numbers share area code and exchange.
func SameExchange(a, b string) bool {
	na, reason := Parse(a)
	if reason != ReasonNone {
		return false
	}
	nb, reason := Parse(b)
	if reason != ReasonNone {
		return false
	}
	return na.AreaCode.Prefix == nb.AreaCode.Prefix && na.Exchange == nb.Exchange
}

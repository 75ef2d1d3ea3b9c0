package erp

// Domain is a search filter in the ERP's prefix notation: operators "&" and
// "|" followed by their operands, leaves are [field, operator, value].
type Domain []any

// Cond is a single leaf condition.
func Cond(field, op string, value any) Domain {
	return Domain{[]any{field, op, value}}
}

// AnyOf ORs field op v for every value.
func AnyOf(field, op string, values ...any) Domain {
	var d Domain
	for i := 1; i < len(values); i++ {
		d = append(d, "|")
	}
	for _, v := range values {
		d = append(d, []any{field, op, v})
	}
	return d
}

// And combines complete domains.
func And(domains ...Domain) Domain {
	var parts []Domain
	for _, d := range domains {
		if len(d) > 0 {
			parts = append(parts, d)
		}
	}
	var out Domain
	for i := 1; i < len(parts); i++ {
		out = append(out, "&")
	}
	for _, d := range parts {
		out = append(out, d...)
	}
	return out
}

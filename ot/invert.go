package ot

// Invert returns the Operation that undoes o when applied to apply(o, str):
// apply(invert(o, str), apply(o, str)) == str. str is the original input
// that o was (or would be) applied to, used to recover the text a delete
// removed.
func (o *Operation) Invert(str string) *Operation {
	runes := []rune(str)
	inv := New()
	i := 0
	for _, a := range o.ops {
		switch a.Kind {
		case Retain:
			inv.Retain(a.Len)
			i += a.Len
		case Insert:
			inv.Delete(a.Len)
		case Delete:
			inv.Insert(string(runes[i : i+a.Len]))
			i += a.Len
		}
	}
	return inv
}

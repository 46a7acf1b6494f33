// Package attr models entity attributes for the warren world store.
//
// # Values
//
// An attribute value is one of String, Int, Float, Bool, *Mapping (an
// ordered key→Value container) or Sequence (an ordered list of values).
// Containers may nest arbitrarily.
//
// # Wire Format
//
// An entity's attribute set (Map) is transferred as a JSON object. Scalars
// are written as-is; containers are wrapped in an envelope that names the
// container kind the world engine uses for them:
//
//	{
//	  "desc": "A damp cellar.",
//	  "exits_seen": {"__type__": "_SaverList", "data": ["north", "up"]},
//	  "stats": {"__type__": "_SaverDict", "data": {"hp": 10, "ac": 2.5}}
//	}
//
// Only top-level values are wrapped: the data of an envelope is plain JSON.
// Decoding accepts both the wrapped form and plain JSON.
package attr

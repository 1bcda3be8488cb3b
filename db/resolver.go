package db

import "github.com/Felmond13/novusdb/collection"

// recordResolver adapts a Controller's scalar and polymorphic join areas
// into a collection.Resolver, shared by every has_many association proxy
// and every index lookup this controller opens.
type recordResolver struct {
	c *Controller
}

func (r *recordResolver) ResolveRange(offset uint64, count uint32, polymorphic bool) ([]collection.Element, error) {
	out := make([]collection.Element, count)
	if polymorphic {
		for i := uint32(0); i < count; i++ {
			id, tag, err := r.c.polyJoin.Get(offset, uint64(i))
			if err != nil {
				return nil, err
			}
			out[i] = collection.Element{RodID: id, Class: r.c.classToType[tag]}
		}
		return out, nil
	}
	for i := uint32(0); i < count; i++ {
		id, err := r.c.scalarJoin.Get(offset, uint64(i))
		if err != nil {
			return nil, err
		}
		out[i] = collection.Element{RodID: id}
	}
	return out, nil
}

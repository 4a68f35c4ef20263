package index

// GetKeyRange collects the record ids for every key in [start, stop].
func (b *BPlusTree[K]) GetKeyRange(start, stop K) ([]RID, error) {
	it, err := b.BeginFrom(start)
	if err != nil {
		return nil, err
	}

	res := []RID{}
	for !it.IsEnd() {
		key, rid, err := it.Next()
		if err != nil {
			return res, err
		}
		if b.cmp(key, stop) > 0 {
			break
		}
		res = append(res, rid)
	}

	return res, nil
}

func (b *BPlusTree[K]) BatchInsert(items map[K]RID) error {
	for k, v := range items {
		if _, err := b.Insert(k, v); err != nil {
			return err
		}
	}

	return nil
}

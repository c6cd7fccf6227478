package ldmodel

// SegmentIncludesKey tests whether the specified context key of the default kind is in the
// Included list of this Segment.
//
// This part of the flag evaluation logic is defined in ldmodel and exported, rather than being
// internal to Evaluator, as a compromise to allow for optimizations that require storing precomputed
// data in the model object. Exporting this function is preferable to exporting those internal
// implementation details.
//
// The segment is passed by reference for efficiency only; the function will not modify it. Passing
// a nil value will cause a panic.
func SegmentIncludesKey(s *Segment, key string) bool {
	if s.preprocessed.includeMap != nil {
		_, found := s.preprocessed.includeMap[key]
		return found
	}
	for _, k := range s.Included {
		if key == k {
			return true
		}
	}
	return false
}

// SegmentExcludesKey tests whether the specified context key of the default kind is in the
// Excluded list of this Segment. Note that inclusion takes priority over exclusion; it is the
// evaluator's responsibility to do all of the inclusion tests before any exclusion tests.
//
// The segment is passed by reference for efficiency only; the function will not modify it. Passing
// a nil value will cause a panic.
func SegmentExcludesKey(s *Segment, key string) bool {
	if s.preprocessed.excludeMap != nil {
		_, found := s.preprocessed.excludeMap[key]
		return found
	}
	for _, k := range s.Excluded {
		if key == k {
			return true
		}
	}
	return false
}

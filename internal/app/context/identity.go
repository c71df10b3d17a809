package context

// Entity is implemented by persisted objects that carry a primary key.
type Entity interface {
	PrimaryKey() any
}

// IdentityValue derives the storage-ready identifier of an acting user.
// Anything that is not an Entity, or whose key is missing or not a scalar,
// yields nil: an unknown actor is preferred over failing the request.
func IdentityValue(v any) (id any) {
	if v == nil || isNilPointer(v) {
		return nil
	}

	entity, ok := v.(Entity)
	if !ok {
		return nil
	}

	defer func() {
		if recover() != nil {
			id = nil
		}
	}()

	key, err := normalizeValue(entity.PrimaryKey())
	if err != nil {
		return nil
	}
	if s, ok := key.(string); ok && s == "" {
		return nil
	}
	return key
}

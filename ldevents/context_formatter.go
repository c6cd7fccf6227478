package ldevents

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldattr"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// eventContextFormatter provides the special JSON serialization format that is used when including
// Context data in analytics events. In this format, some attribute values may be redacted based on
// the SDK's events configuration and/or the per-Context setting of ldcontext.Builder.Private().
type eventContextFormatter struct {
	allAttributesPrivate bool
	privateAttributes    map[string]*privateAttrLookupNode
}

// privateAttrLookupNode is used internally by eventContextFormatter to represent a parsed set of
// private attribute references, for faster lookups when we're applying them to context data.
//
// Each node in this tree structure corresponds to a parsed ldattr.Ref that either refers to that
// location, or is the parent of another private attribute reference. The attribute field is non-nil
// if there is an exact match at that location.
//
// For instance, if the private attribute references were "a", "b", "c/d", and "c/e", then the
// privateAttributeLookupNode tree would look like this:
//
//	- "a": {attribute: NewRef("a")}
//	- "b": {attribute: NewRef("b")}
//	- "c": {
//	    children:
//	      "d": {attribute: NewRef("c/d")}
//	      "e": {attribute: NewRef("c/e")}
//	  }
type privateAttrLookupNode struct {
	attribute *ldattr.Ref
	children  map[string]*privateAttrLookupNode
}

func newEventContextFormatter(config EventsConfiguration) eventContextFormatter {
	ret := eventContextFormatter{allAttributesPrivate: config.AllAttributesPrivate}
	if len(config.PrivateAttributes) != 0 {
		ret.privateAttributes = makePrivateAttrLookupData(config.PrivateAttributes)
	}
	return ret
}

// makePrivateAttrLookupData transforms a list of attribute references into a tree structure that
// allows for a more efficient implementation of checkGlobalPrivateAttrRefs.
func makePrivateAttrLookupData(attrRefList []ldattr.Ref) map[string]*privateAttrLookupNode {
	ret := make(map[string]*privateAttrLookupNode)
	for _, a := range attrRefList {
		parentMap := &ret
		for i := 0; i < a.Depth(); i++ {
			name := a.Component(i)
			if *parentMap == nil {
				*parentMap = make(map[string]*privateAttrLookupNode)
			}
			nextNode := (*parentMap)[name]
			if nextNode == nil {
				nextNode = &privateAttrLookupNode{}
				if i == a.Depth()-1 {
					aa := a
					nextNode.attribute = &aa
				}
				(*parentMap)[name] = nextNode
			}
			parentMap = &nextNode.children
		}
	}
	return ret
}

// WriteContext serializes a Context in the format appropriate for an analytics event, redacting
// private attributes if necessary.
func (f *eventContextFormatter) WriteContext(w *jwriter.Writer, ec *EventInputContext) {
	if ec.preserialized != nil {
		w.Raw(ec.preserialized)
		return
	}
	if ec.context.Err() != nil {
		w.AddError(ec.context.Err())
		return
	}
	if ec.context.Multiple() {
		f.writeContextInternalMulti(w, ec)
	} else {
		f.writeContextInternalSingle(w, &ec.context, true)
	}
}

func (f *eventContextFormatter) writeContextInternalSingle(w *jwriter.Writer, c *ldcontext.Context, includeKind bool) {
	obj := w.Object()
	if includeKind {
		obj.Name(ldattr.KindAttr).String(string(c.Kind()))
	}

	obj.Name(ldattr.KeyAttr).String(c.Key())

	optionalAttrNames := make([]string, 0, 50) // arbitrary capacity, expanded if necessary by GetOptionalAttributeNames
	redactedAttrs := make([]string, 0, 20)

	optionalAttrNames = c.GetOptionalAttributeNames(optionalAttrNames)

	for _, key := range optionalAttrNames {
		if value := c.GetValue(key); value.IsDefined() {
			if f.allAttributesPrivate {
				// If AllAttributesPrivate is true, then there's no complex filtering or recursing to be done: all of
				// these values are by definition private, so just add their names to the redacted list. Since the
				// redacted list uses the attribute reference syntax, we may need to escape the attribute name.
				escapedAttrName := ldattr.NewLiteralRef(key).String()
				redactedAttrs = append(redactedAttrs, escapedAttrName)
				continue
			}
			path := make([]string, 0, 10)
			f.writeFilteredAttribute(w, c, &obj, path, key, value, &redactedAttrs)
		}
	}

	if c.Anonymous() {
		obj.Name(ldattr.AnonymousAttr).Bool(true)
	}

	if len(redactedAttrs) > 0 {
		metaJSON := obj.Name("_meta").Object()
		privateAttrsJSON := metaJSON.Name("redactedAttributes").Array()
		for _, a := range redactedAttrs {
			privateAttrsJSON.String(a)
		}
		privateAttrsJSON.End()
		metaJSON.End()
	}

	obj.End()
}

func (f *eventContextFormatter) writeContextInternalMulti(w *jwriter.Writer, ec *EventInputContext) {
	obj := w.Object()
	obj.Name(ldattr.KindAttr).String(string(ldcontext.MultiKind))

	for i := 0; i < ec.context.IndividualContextCount(); i++ {
		if mc := ec.context.IndividualContextByIndex(i); mc.IsDefined() {
			obj.Name(string(mc.Kind()))
			f.writeContextInternalSingle(w, &mc, false)
		}
	}

	obj.End()
}

// writeFilteredAttribute checks whether a given value should be considered private, and then
// either writes the attribute to the output JSON object if it is *not* private, or adds the
// corresponding attribute reference to the redactedAttrs list if it is.
//
// The parentPath parameter indicates where we are in the context data structure. If it is empty,
// we are at the top level and "key" is an attribute name. If it is not empty, we are recursing
// into the properties of an attribute value that is a JSON object: for instance, if parentPath
// is ["billing", "address"], it means that the top-level attribute is "billing" and has a value
// in the form {"address": {"street": ...}} and we are now deciding whether to write the
// property "street". See maybeRedact() for the logic involved in that decision.
func (f *eventContextFormatter) writeFilteredAttribute(
	w *jwriter.Writer,
	c *ldcontext.Context,
	parentObj *jwriter.ObjectState,
	parentPath []string,
	key string,
	value ldvalue.Value,
	redactedAttrs *[]string,
) {
	path := append(parentPath, key) //nolint:gocritic // purposely not copying the slice

	isRedacted, nestedPropertiesAreRedacted := f.maybeRedact(c, path, value.Type(), redactedAttrs)

	if isRedacted {
		return
	}

	if value.Type() != ldvalue.ObjectType || !nestedPropertiesAreRedacted {
		// If the value is not a JSON object, then there's no complex filtering to do - we either
		// redact the whole attribute or write the whole attribute. Or, if it is an object but
		// there are no private attribute references pointing to properties within it, we can
		// also write it as-is.
		parentObj.Name(key)
		value.WriteToJSONWriter(w)
		return
	}

	// The value is a JSON object, and some of its properties may be private
	subObj := parentObj.Name(key).Object()
	objectKeys := make([]string, 0, 50) // arbitrary capacity, expanded if necessary by Keys
	for _, k := range value.Keys(objectKeys) {
		f.writeFilteredAttribute(w, c, &subObj, path, k, value.GetByKey(k), redactedAttrs)
	}
	subObj.End()
}

// maybeRedact is called by writeFilteredAttribute to decide whether or not a given value (or,
// possibly, properties within it) should be considered private, based on the configuration and
// the individual Context's settings.
//
// If the value should be private, then the first return value is true, and also the attribute
// reference is added to redactedAttrs.
//
// If the value is a JSON object and it is not completely private, but some properties within it
// are private, then the first return value is false (indicating that we should not skip the
// attribute entirely) but the second return value is true (indicating that we'll need to
// recurse to apply redaction to the object properties).
func (f *eventContextFormatter) maybeRedact(
	c *ldcontext.Context,
	parentPath []string,
	valueType ldvalue.ValueType,
	redactedAttrs *[]string,
) (bool, bool) {
	redactedAttrRef, nestedPropertiesAreRedacted := f.checkGlobalPrivateAttrRefs(parentPath)
	if redactedAttrRef != nil {
		*redactedAttrs = append(*redactedAttrs, redactedAttrRef.String())
		return true, false
	}

	shouldCheckForNestedProperties := valueType == ldvalue.ObjectType

	for i := 0; i < c.PrivateAttributeCount(); i++ {
		a, _ := c.PrivateAttributeByIndex(i)
		depth := a.Depth()
		if depth < len(parentPath) {
			// If the attribute reference is shorter than the current path, then it can't possibly be a match,
			// because if any part of it matched the parent path, we wouldn't have recursed this far.
			continue
		}
		if !shouldCheckForNestedProperties && depth > len(parentPath) {
			continue
		}
		match := true
		for j := 0; j < len(parentPath); j++ {
			name := a.Component(j)
			if name != parentPath[j] {
				match = false
				break
			}
		}
		if match {
			if depth == len(parentPath) {
				*redactedAttrs = append(*redactedAttrs, a.String())
				return true, false
			}
			nestedPropertiesAreRedacted = true
		}
	}

	return false, nestedPropertiesAreRedacted
}

// Checks whether the given attribute or subproperty matches any ldattr.Ref that was designated as
// private in the SDK options given to newEventContextFormatter.
//
// If parentPath has just one element, it is the name of a top-level attribute. If it has multiple
// elements, it is a path to a property within a custom object attribute: for instance, if you
// represented the overall context as a JSON object, the parentPath ["billing", "address", "street"]
// would refer to the street property within something like {"billing": {"address": {"street": "x"}}}.
//
// The first return value is nil unless there is a private attribute reference that is an exact match
// for this path, in which case it is that reference.
//
// The second return value is true if and only if there's at least one private attribute reference
// that points to a property *within* the exact path. For instance, if parentPath was
// ["billing", "address"] and there was a private attribute reference of /billing/address/street,
// that would cause a return value of (nil, true), which would tell us that we can't output the
// whole "address" object property as-is, but will need to filter its properties.
//
// This method is used by writeFilteredAttribute when checking the configuration's private
// attribute references. A context's own list of private attribute references is checked separately
// by maybeRedact.
func (f *eventContextFormatter) checkGlobalPrivateAttrRefs(parentPath []string) (
	redactedAttrRef *ldattr.Ref, nestedPropertiesAreRedacted bool,
) {
	lookup := f.privateAttributes
	if lookup == nil {
		return nil, false
	}
	for i, pathComponent := range parentPath {
		nextNode := lookup[pathComponent]
		if nextNode == nil {
			break
		}
		if i == len(parentPath)-1 {
			if nextNode.attribute != nil {
				return nextNode.attribute, false
			}
			return nil, true
		}
		if nextNode.children != nil {
			lookup = nextNode.children
		} else {
			break
		}
	}
	return nil, false
}

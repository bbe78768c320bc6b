package deserialization

import (
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/scopes"
)

// unit is the callable records of one class or package part together with
// the deserializer that reads them.
type unit struct {
	owner      descriptors.DeclarationDescriptor
	members    *memberDeserializer
	functions  []*metadata.Function
	properties []*metadata.Property
	index      *memberIndex
}

func newUnit(owner descriptors.DeclarationDescriptor, members *memberDeserializer, fns []*metadata.Function, props []*metadata.Property) *unit {
	return &unit{
		owner:      owner,
		members:    members,
		functions:  fns,
		properties: props,
		index:      indexMembers(members.types, fns, props),
	}
}

// declaredScope holds the members written in the metadata of a class or a
// package. Members of a name are deserialized together on first request.
type declaredScope struct {
	units           []*unit
	functions       *lazy.Func[names.Name, []descriptors.FunctionDescriptor]
	properties      *lazy.Func[names.Name, []descriptors.PropertyDescriptor]
	classifier      func(names.Name) descriptors.ClassifierDescriptor
	classifierNames func() []names.Name
}

func newDeclaredScope(s *lazy.Storage, label string, units []*unit, classifier func(names.Name) descriptors.ClassifierDescriptor, classifierNames func() []names.Name) *declaredScope {
	ds := &declaredScope{units: units, classifier: classifier, classifierNames: classifierNames}
	ds.functions = lazy.NewFunc(s, ds.computeFunctions).Named(label + " declared functions")
	ds.properties = lazy.NewFunc(s, ds.computeProperties).Named(label + " declared properties")
	return ds
}

func (ds *declaredScope) computeFunctions(name names.Name) ([]descriptors.FunctionDescriptor, error) {
	var out []descriptors.FunctionDescriptor
	for _, u := range ds.units {
		for _, i := range u.index.functions[name] {
			out = append(out, u.members.function(u.owner, u.functions[i], i))
		}
	}
	return out, nil
}

func (ds *declaredScope) computeProperties(name names.Name) ([]descriptors.PropertyDescriptor, error) {
	var out []descriptors.PropertyDescriptor
	for _, u := range ds.units {
		for _, i := range u.index.properties[name] {
			out = append(out, u.members.property(u.owner, u.properties[i], i))
		}
	}
	return out, nil
}

func (ds *declaredScope) ContributedFunctions(name names.Name) []descriptors.FunctionDescriptor {
	fns, _ := ds.functions.Get(name)
	return fns
}

func (ds *declaredScope) ContributedProperties(name names.Name) []descriptors.PropertyDescriptor {
	props, _ := ds.properties.Get(name)
	return props
}

func (ds *declaredScope) ContributedClassifier(name names.Name) descriptors.ClassifierDescriptor {
	if ds.classifier == nil {
		return nil
	}
	return ds.classifier(name)
}

func (ds *declaredScope) FunctionNames() []names.Name {
	lists := make([][]names.Name, len(ds.units))
	for i, u := range ds.units {
		lists[i] = u.index.fnNames
	}
	return scopes.Union(lists...)
}

func (ds *declaredScope) PropertyNames() []names.Name {
	lists := make([][]names.Name, len(ds.units))
	for i, u := range ds.units {
		lists[i] = u.index.propNames
	}
	return scopes.Union(lists...)
}

func (ds *declaredScope) ClassifierNames() []names.Name {
	if ds.classifierNames == nil {
		return nil
	}
	return ds.classifierNames()
}

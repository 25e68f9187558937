// Package reconcile brings an entry's attachment list in line with the
// direct resources its table requires before the entry is programmed.
package reconcile

import (
	"slices"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

// Result lists the handles Reconcile attached and removed.
type Result struct {
	Added  []pipe.ResourceHandle
	Pruned []pipe.ResourceHandle
}

// Changed reports whether the attachment list was modified.
func (r Result) Changed() bool { return len(r.Added) > 0 || len(r.Pruned) > 0 }

// Required returns the distinct direct resource handles an entry must
// carry, in ascending order. For default entries only the families the
// action body uses are required.
func Required(bound []catalog.BoundResource, usage catalog.ResourceUsage, isDefault bool) []pipe.ResourceHandle {
	var out []pipe.ResourceHandle
	for _, r := range bound {
		if r.Indirect {
			continue
		}
		if isDefault && !used(r.Kind, usage) {
			continue
		}
		switch r.Kind {
		case catalog.ResourceCounter, catalog.ResourceMeter, catalog.ResourceLPF,
			catalog.ResourceWRED, catalog.ResourceRegister:
			out = append(out, r.Handle)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func used(kind catalog.ResourceKind, u catalog.ResourceUsage) bool {
	switch kind {
	case catalog.ResourceCounter:
		return u.Counter
	case catalog.ResourceMeter, catalog.ResourceLPF, catalog.ResourceWRED:
		return u.Meter
	case catalog.ResourceRegister:
		return u.Register
	}
	return false
}

// Reconcile compares the number of direct attachments on spec with the
// required set. Missing resources are attached. Default entries shed
// attachments outside the set; any other entry with more direct
// attachments than the table binds is an internal error. spec is left
// unchanged when an error is returned.
func Reconcile(spec *actionspec.Spec, bound []catalog.BoundResource, usage catalog.ResourceUsage, isDefault bool) (Result, error) {
	var res Result
	required := Required(bound, usage, isDefault)
	programmed := spec.Direct()

	switch {
	case programmed == len(required):
		return res, nil

	case programmed > len(required):
		if !isDefault {
			return res, status.Unexpectedf("entry carries %d direct resources, table binds %d",
				programmed, len(required))
		}
		for i := 0; i < spec.Len(); {
			a := spec.At(i)
			if _, found := slices.BinarySearch(required, a.Handle); found {
				i++
				continue
			}
			// The last attachment moves into slot i, so i is not advanced.
			spec.RemoveAt(i)
			res.Pruned = append(res.Pruned, a.Handle)
		}
		return res, nil
	}

	kinds := make(map[pipe.ResourceHandle]catalog.ResourceKind, len(bound))
	for _, r := range bound {
		if !r.Indirect {
			kinds[r.Handle] = r.Kind
		}
	}
	var missing []pipe.ResourceHandle
	for _, h := range required {
		if _, ok := spec.Attachment(h); !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > spec.Room() {
		return res, status.Invalidf("attaching %d resources exceeds the %d-entry attachment list",
			len(missing), actionspec.MaxResources)
	}
	for _, h := range missing {
		a := actionspec.Attachment{Handle: h, Kind: kinds[h], Tag: actionspec.TagAttached, Direct: true}
		if err := spec.Append(a); err != nil {
			return res, err
		}
		res.Added = append(res.Added, h)
	}
	return res, nil
}

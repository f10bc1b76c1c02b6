package forms

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/goliatone/go-formctx/pkg/crossentity"
	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/validation"
)

// Store types supported by the OSD editor.
const (
	StoreBluestore = "bluestore"
	StoreFilestore = "filestore"
)

// OSDEntry seeds one OSD context of the editor.
type OSDEntry struct {
	ID            string `json:"id" yaml:"id"`
	Device        string `json:"device,omitempty" yaml:"device,omitempty"`
	DBDevice      string `json:"dbDevice,omitempty" yaml:"dbDevice,omitempty"`
	StoreType     string `json:"storeType,omitempty" yaml:"storeType,omitempty"`
	JournalSizeMB int    `json:"journalSizeMB,omitempty" yaml:"journalSizeMB,omitempty"`
}

// OSD edits several OSD entries at once; each entry lives in its own context
// and a device may back at most one entry.
type OSD struct {
	*form.Controller

	contexts []string
	devices  []crossentity.Device
	resolve  crossentity.Resolver
}

// OSDEditor builds one context per entry, named "osd<ID>". Entries with an
// empty ID are numbered by position.
func OSDEditor(entries []OSDEntry, devices []crossentity.Device, opts ...Option) (*OSD, error) {
	cfg := newConfig(opts)
	o := &OSD{}
	o.setDevices(devices)

	contexts := make([]model.Context, 0, len(entries))
	for i, entry := range entries {
		id := entry.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		name := "osd" + id
		o.contexts = append(o.contexts, name)
		contexts = append(contexts, model.Context{Name: name, Fields: osdFields(entry, devices)})
	}

	resolve := func(value any) (string, bool) { return o.resolve(value) }
	unique := crossentity.Unique(DeviceUsageKey, "device", resolve, "device is already used by another OSD")
	unique.Advisory = cfg.advisoryReuse

	formOpts := append([]form.Option{
		form.WithDeriver(form.Deriver(crossentity.UsageDeriver(DeviceUsageKey, "device", resolve))),
	}, cfg.formOptions...)

	c, err := form.New(form.Spec{
		Contexts: contexts,
		Rules:    []validation.Rule{unique, separateDBDevice(), journalSize()},
		Mode:     ModeEdit,
	}, formOpts...)
	if err != nil {
		return nil, fmt.Errorf("forms: osd editor: %w", err)
	}
	o.Controller = c
	return o, nil
}

// RefreshDevices replaces the known device list, recomputes the device
// options of every entry and revalidates.
func (o *OSD) RefreshDevices(devices []crossentity.Device) error {
	o.setDevices(devices)
	opts := crossentity.DeviceOptions(devices)
	for _, ctx := range o.contexts {
		for _, name := range []string{"device", "dbDevice"} {
			if err := o.UpdateOptions(ctx, name, opts); err != nil {
				return fmt.Errorf("forms: refresh devices: %w", err)
			}
		}
	}
	return nil
}

// Usage counts how many entries reference each device id.
func (o *OSD) Usage() map[string]int {
	return crossentity.CountUsage(o.Store(), "device", o.resolve)
}

// Contexts lists the OSD contexts in entry order.
func (o *OSD) Contexts() []string {
	return append([]string(nil), o.contexts...)
}

// Entries reads the current values back as entries. Bluestore entries never
// report a journal size.
func (o *OSD) Entries() []OSDEntry {
	out := make([]OSDEntry, 0, len(o.contexts))
	for _, ctx := range o.contexts {
		values := o.Store().Values(ctx)
		entry := OSDEntry{
			ID:        ctx[len("osd"):],
			Device:    validation.ValueString(values["device"]),
			DBDevice:  validation.ValueString(values["dbDevice"]),
			StoreType: validation.ValueString(values["storeType"]),
		}
		if entry.StoreType == StoreFilestore {
			if n, err := validation.CoerceNumber(values["journalSizeMB"]); err == nil {
				entry.JournalSizeMB = int(n)
			}
		}
		out = append(out, entry)
	}
	return out
}

// DuplicateDevices lists device ids referenced by more than one entry.
func (o *OSD) DuplicateDevices() []string {
	var out []string
	for id, n := range o.Usage() {
		if n > 1 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (o *OSD) setDevices(devices []crossentity.Device) {
	o.devices = append([]crossentity.Device(nil), devices...)
	o.resolve = crossentity.DeviceResolver(o.devices)
}

func osdFields(entry OSDEntry, devices []crossentity.Device) []model.Field {
	storeType := entry.StoreType
	if storeType == "" {
		storeType = StoreBluestore
	}
	var journal any
	if entry.JournalSizeMB > 0 {
		journal = entry.JournalSizeMB
	}
	deviceOpts := crossentity.DeviceOptions(devices)
	return []model.Field{
		{Name: "device", Type: model.FieldTypeDropdown, Required: true, Label: "Device", Default: nilIfEmpty(entry.Device), Options: deviceOpts},
		{Name: "dbDevice", Type: model.FieldTypeDropdown, Label: "DB device", Default: nilIfEmpty(entry.DBDevice), Options: deviceOpts},
		{Name: "storeType", Type: model.FieldTypeRadioGroup, Required: true, Label: "Store type", Default: storeType, Options: options(StoreBluestore, StoreFilestore)},
		{Name: "journalSizeMB", Type: model.FieldTypeNumber, Label: "Journal size (MB)", Default: journal},
	}
}

// Journal bounds in MB. Only filestore entries carry a journal.
const (
	minJournalMB = 1024
	maxJournalMB = 102400
)

// journalSize bounds journalSizeMB on filestore entries and ignores it on
// bluestore ones.
func journalSize() validation.Rule {
	return validation.Rule{
		Name:  "osd:journalSize",
		Match: validation.FieldInAnyContext("journalSizeMB"),
		Check: func(in validation.Input) string {
			if validation.IsEmpty(in.Value) || validation.ValueString(in.Siblings["storeType"]) != StoreFilestore {
				return ""
			}
			n, err := validation.CoerceNumber(in.Value)
			if err != nil {
				return ""
			}
			switch {
			case n < minJournalMB:
				return "must be at least " + strconv.Itoa(minJournalMB)
			case n > maxJournalMB:
				return "must be at most " + strconv.Itoa(maxJournalMB)
			}
			return ""
		},
	}
}

// separateDBDevice rejects a DB device equal to the data device of the same
// entry.
func separateDBDevice() validation.Rule {
	return validation.Rule{
		Name:  "osd:separateDBDevice",
		Match: validation.FieldInAnyContext("dbDevice"),
		Check: func(in validation.Input) string {
			if validation.IsEmpty(in.Value) {
				return ""
			}
			if validation.ValueString(in.Value) == validation.ValueString(in.Siblings["device"]) {
				return "must differ from the data device"
			}
			return ""
		},
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

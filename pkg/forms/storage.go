package forms

import (
	"fmt"

	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/validation"
	"github.com/goliatone/go-formctx/pkg/visibility"
)

// Storage backends offered by the storage add form.
const (
	StorageCeph = "ceph"
	StorageNFS  = "nfs"
	StorageLVM  = "lvm"
)

// Import modes of the storage import form.
const (
	ImportExisting = "existing"
	ImportNew      = "new"
)

// StorageAdd builds the form used to attach a new storage backend. Only the
// context of the selected backend is active; an unknown storageType leaves
// just the general context.
func StorageAdd(opts ...Option) (*form.Controller, error) {
	cfg := newConfig(opts)

	spec := form.Spec{
		Contexts: []model.Context{
			{Name: "general", Fields: []model.Field{
				{Name: "name", Type: model.FieldTypeText, Required: true, Label: "Name", Validations: []model.ValidationRule{
					rule(model.ValidationRulePattern, "pattern", `^[A-Za-z][A-Za-z0-9_-]*$`),
					rule(model.ValidationRuleMaxLength, "value", "40"),
				}},
				{Name: "storageType", Type: model.FieldTypeDropdown, Required: true, Label: "Type", Default: StorageCeph, Options: options(StorageCeph, StorageNFS, StorageLVM)},
				{Name: "shared", Type: model.FieldTypeCheckbox, Label: "Shared", Default: false},
			}},
			{Name: "addCeph", Fields: []model.Field{
				{Name: "monitors", Type: model.FieldTypeText, Required: true, Label: "Monitor hosts"},
				{Name: "pool", Type: model.FieldTypeText, Required: true, Label: "Pool", Default: "rbd"},
				{Name: "minFreeGB", Type: model.FieldTypeNumber, Label: "Minimum free space (GB)", Default: 10, Validations: []model.ValidationRule{
					rule(model.ValidationRuleMin, "value", "0"),
				}},
				{Name: "maxFreeGB", Type: model.FieldTypeNumber, Label: "Maximum free space (GB)", Default: 100, Validations: []model.ValidationRule{
					rule(model.ValidationRuleMin, "value", "0"),
				}},
			}},
			{Name: "addNFS", Fields: []model.Field{
				{Name: "server", Type: model.FieldTypeText, Required: true, Label: "Server"},
				{Name: "export", Type: model.FieldTypeText, Required: true, Label: "Export path", Validations: []model.ValidationRule{
					rule(model.ValidationRulePattern, "pattern", `^/`, "message", "must be an absolute path"),
				}},
				{Name: "version", Type: model.FieldTypeRadioGroup, Label: "NFS version", Default: "4.2", Options: options("3", "4", "4.1", "4.2")},
			}},
			{Name: "addLVM", Fields: []model.Field{
				{Name: "volumeGroup", Type: model.FieldTypeText, Required: true, Label: "Volume group"},
				{Name: "thinPool", Type: model.FieldTypeText, Label: "Thin pool"},
			}},
			{Name: "showStorage", Fields: []model.Field{
				{Name: "summary", Type: model.FieldTypeStatic, Label: "Review the storage before saving"},
			}},
		},
		Discriminator: discriminator("general", "storageType"),
		Mode:          ModeAdd,
		Selector: visibility.Table{
			Modes: map[string]visibility.Branches{
				ModeAdd: {
					Cases: map[string][]string{
						StorageCeph: {"general", "addCeph"},
						StorageNFS:  {"general", "addNFS"},
						StorageLVM:  {"general", "addLVM"},
					},
					Default: []string{"general"},
				},
				ModeShow: {Default: []string{"general", "showStorage"}},
			},
			Default: []string{"general"},
		},
		Rules: []validation.Rule{
			validation.LessThan("addCeph", "minFreeGB", "maxFreeGB", "must be greater than the minimum free space"),
		},
	}

	c, err := form.New(spec, cfg.formOptions...)
	if err != nil {
		return nil, fmt.Errorf("forms: storage add: %w", err)
	}
	return c, nil
}

// StorageImport builds the form importing either an existing storage or a
// new one. An unrecognised importMode falls back to the existing branch.
func StorageImport(opts ...Option) (*form.Controller, error) {
	cfg := newConfig(opts)

	spec := form.Spec{
		Contexts: []model.Context{
			{Name: "general", Fields: []model.Field{
				{Name: "importMode", Type: model.FieldTypeRadioGroup, Required: true, Label: "Import", Default: ImportExisting, Options: options(ImportExisting, ImportNew)},
			}},
			{Name: "importExisting", Fields: []model.Field{
				{Name: "storageID", Type: model.FieldTypeDropdown, Required: true, Label: "Storage"},
				{Name: "readOnly", Type: model.FieldTypeCheckbox, Label: "Read only", Default: false},
			}},
			{Name: "importNew", Fields: []model.Field{
				{Name: "name", Type: model.FieldTypeText, Required: true, Label: "Name", Validations: []model.ValidationRule{
					rule(model.ValidationRuleMinLength, "value", "3"),
				}},
				{Name: "capacityGB", Type: model.FieldTypeNumber, Required: true, Label: "Capacity (GB)", Validations: []model.ValidationRule{
					rule(model.ValidationRuleMin, "value", "1"),
				}},
			}},
		},
		Discriminator: discriminator("general", "importMode"),
		Mode:          ModeImport,
		Selector: visibility.Table{
			Modes: map[string]visibility.Branches{
				ModeImport: {
					Cases: map[string][]string{
						ImportExisting: {"general", "importExisting"},
						ImportNew:      {"general", "importNew"},
					},
					Default: []string{"general", "importExisting"},
				},
			},
			Default: []string{"general", "importExisting"},
		},
	}

	c, err := form.New(spec, cfg.formOptions...)
	if err != nil {
		return nil, fmt.Errorf("forms: storage import: %w", err)
	}
	return c, nil
}

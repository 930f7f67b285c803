package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/interfaces"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/dbctx"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
)

type catalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) interfaces.CatalogStore {
	return &catalogRepo{db: db, log: baseLog.With("repo", "CatalogRepo")}
}

type childTable struct {
	fk    string
	model any
}

// Import writes cat in one transaction. Entities are replaced by their natural
// key (code or name) together with the rows they own; database ids are
// assigned back into cat.
func (r *catalogRepo) Import(dbc dbctx.Context, cat *domain.Catalog) error {
	if cat == nil {
		return fmt.Errorf("%w: nil catalog", domain.ErrInvalidArgument)
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	clearIDs(cat)

	err := t.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		for i := range cat.MovementTypes {
			m := &cat.MovementTypes[i]
			if err := replaceByKey(tx, &domain.MovementType{}, "code", m.Code); err != nil {
				return err
			}
			if err := tx.Create(m).Error; err != nil {
				return fmt.Errorf("movement type %s: %w", m.Code, err)
			}
		}
		for i := range cat.DeclarationKeys {
			k := &cat.DeclarationKeys[i]
			if err := replaceByKey(tx, &domain.DeclarationKey{}, "code", k.Code,
				childTable{"declaration_key_id", &domain.KeyPolicyLine{}}); err != nil {
				return err
			}
			if err := tx.Create(k).Error; err != nil {
				return fmt.Errorf("declaration key %s: %w", k.Code, err)
			}
		}
		for i := range cat.TariffItems {
			ti := &cat.TariffItems[i]
			if err := tx.Where("code = ? AND nico = ?", ti.Code, ti.Nico).Delete(&domain.TariffItem{}).Error; err != nil {
				return err
			}
			if err := tx.Create(ti).Error; err != nil {
				return fmt.Errorf("tariff item %s: %w", ti.Code, err)
			}
		}
		for i := range cat.StructureRules {
			s := &cat.StructureRules[i]
			if err := replaceByKey(tx, &domain.StructureRule{}, "name", s.Name,
				childTable{"structure_rule_id", &domain.StructureRuleLine{}}); err != nil {
				return err
			}
			if err := tx.Create(s).Error; err != nil {
				return fmt.Errorf("structure rule %s: %w", s.Name, err)
			}
		}
		for i := range cat.LayoutRecords {
			l := &cat.LayoutRecords[i]
			if err := replaceByKey(tx, &domain.LayoutRecord{}, "code", l.Code,
				childTable{"layout_record_id", &domain.LayoutField{}}); err != nil {
				return err
			}
			if err := tx.Create(l).Error; err != nil {
				return fmt.Errorf("layout record %s: %w", l.Code, err)
			}
		}
		for i := range cat.Rulepacks {
			p := &cat.Rulepacks[i]
			if err := replaceByKey(tx, &domain.Rulepack{}, "code", p.Code,
				childTable{"rulepack_id", &domain.Scenario{}},
				childTable{"rulepack_id", &domain.Selector{}},
				childTable{"rulepack_id", &domain.ProcessRule{}},
				childTable{"rulepack_id", &domain.ConditionRule{}},
			); err != nil {
				return err
			}
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("rulepack %s: %w", p.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error("catalog import failed", "error", err)
		return err
	}
	cat.Reindex()
	r.log.Info("catalog imported",
		"rulepacks", len(cat.Rulepacks),
		"structure_rules", len(cat.StructureRules),
		"declaration_keys", len(cat.DeclarationKeys),
	)
	return nil
}

// replaceByKey deletes the rows of model whose column equals value, children first.
func replaceByKey(tx *gorm.DB, model any, column string, value any, children ...childTable) error {
	var ids []uint
	if err := tx.Model(model).Where(column+" = ?", value).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	for _, c := range children {
		if err := tx.Where(c.fk+" IN ?", ids).Delete(c.model).Error; err != nil {
			return err
		}
	}
	return tx.Where("id IN ?", ids).Delete(model).Error
}

// clearIDs drops file-assigned ids so the database hands out its own.
func clearIDs(cat *domain.Catalog) {
	for i := range cat.MovementTypes {
		cat.MovementTypes[i].ID = 0
	}
	for i := range cat.DeclarationKeys {
		k := &cat.DeclarationKeys[i]
		k.ID = 0
		for j := range k.Policies {
			k.Policies[j].ID = 0
			k.Policies[j].DeclarationKeyID = 0
		}
	}
	for i := range cat.TariffItems {
		cat.TariffItems[i].ID = 0
	}
	for i := range cat.StructureRules {
		s := &cat.StructureRules[i]
		s.ID = 0
		for j := range s.Lines {
			s.Lines[j].ID = 0
			s.Lines[j].StructureRuleID = 0
		}
	}
	for i := range cat.LayoutRecords {
		l := &cat.LayoutRecords[i]
		l.ID = 0
		for j := range l.Fields {
			l.Fields[j].ID = 0
			l.Fields[j].LayoutRecordID = 0
		}
	}
	for i := range cat.Rulepacks {
		p := &cat.Rulepacks[i]
		p.ID = 0
		for j := range p.Scenarios {
			p.Scenarios[j].ID = 0
			p.Scenarios[j].RulepackID = 0
		}
		for j := range p.Selectors {
			p.Selectors[j].ID = 0
			p.Selectors[j].RulepackID = 0
		}
		for j := range p.ProcessRules {
			p.ProcessRules[j].ID = 0
			p.ProcessRules[j].RulepackID = 0
		}
		for j := range p.ConditionRules {
			p.ConditionRules[j].ID = 0
			p.ConditionRules[j].RulepackID = 0
		}
	}
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

// Load reads the whole catalog with every rulepack and its children.
func (r *catalogRepo) Load(ctx context.Context) (*domain.Catalog, error) {
	db := r.db.WithContext(ctx)
	var cat domain.Catalog

	if err := db.Order("id").Find(&cat.MovementTypes).Error; err != nil {
		return nil, fmt.Errorf("load movement types: %w", err)
	}
	if err := db.Preload("Policies", byID).Order("id").Find(&cat.DeclarationKeys).Error; err != nil {
		return nil, fmt.Errorf("load declaration keys: %w", err)
	}
	if err := db.Order("id").Find(&cat.TariffItems).Error; err != nil {
		return nil, fmt.Errorf("load tariff items: %w", err)
	}
	if err := db.Preload("Lines", byID).Order("id").Find(&cat.StructureRules).Error; err != nil {
		return nil, fmt.Errorf("load structure rules: %w", err)
	}
	if err := db.Preload("Fields", byID).Order("id").Find(&cat.LayoutRecords).Error; err != nil {
		return nil, fmt.Errorf("load layout records: %w", err)
	}
	if err := db.
		Preload("Scenarios", byID).
		Preload("Selectors", byID).
		Preload("ProcessRules", byID).
		Preload("ConditionRules", byID).
		Order("id").
		Find(&cat.Rulepacks).Error; err != nil {
		return nil, fmt.Errorf("load rulepacks: %w", err)
	}
	return cat.Reindex(), nil
}

func (r *catalogRepo) ListRulepacks(dbc dbctx.Context) ([]domain.Rulepack, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []domain.Rulepack
	if err := t.WithContext(dbc.Ctx).
		Order("valid_from DESC").
		Order("code").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

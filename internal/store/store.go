package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/topology"
)

// ListSegments returns every segment with its devices, ordered by VLAN number.
func (s *Store) ListSegments(ctx context.Context) ([]model.Segment, error) {
	var rows []segmentRow
	err := s.db.WithContext(ctx).
		Preload("Devices", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("number").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	out := make([]model.Segment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// ListRules returns the ACL in evaluation order.
func (s *Store) ListRules(ctx context.Context) ([]model.Rule, error) {
	var rows []ruleRow
	if err := s.db.WithContext(ctx).Order("priority").Order("seq").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	out := make([]model.Rule, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) CreateSegment(ctx context.Context, seg model.Segment) (model.Segment, error) {
	seg.Name = strings.TrimSpace(seg.Name)
	if seg.Number < topology.MinVLAN || seg.Number > topology.MaxVLAN {
		return model.Segment{}, fmt.Errorf("%w: vlan %d out of range %d-%d", model.ErrMalformedRequest, seg.Number, topology.MinVLAN, topology.MaxVLAN)
	}
	if seg.ID == "" {
		seg.ID = fmt.Sprintf("vlan-%d", seg.Number)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&segmentRow{}).Where("number = ? OR id = ?", seg.Number, seg.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: vlan %d", ErrDuplicate, seg.Number)
		}
		return tx.Create(&segmentRow{ID: seg.ID, Number: seg.Number, Name: seg.Name, Subnet: seg.Subnet}).Error
	})
	if err != nil {
		return model.Segment{}, translate(err)
	}
	seg.Devices = nil
	return seg, nil
}

// CreateDevice attaches dev to the segment carrying segmentNumber. A missing id
// is generated.
func (s *Store) CreateDevice(ctx context.Context, segmentNumber int, dev model.Device) (model.Device, error) {
	dev.ID = strings.TrimSpace(dev.ID)
	if dev.ID == "" {
		dev.ID = uuid.NewString()
	}
	dev.Category = strings.ToUpper(strings.TrimSpace(dev.Category))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seg segmentRow
		if err := tx.Where("number = ?", segmentNumber).Take(&seg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: vlan %d", ErrNotFound, segmentNumber)
			}
			return err
		}
		var n int64
		if err := tx.Model(&deviceRow{}).Where("id = ?", dev.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: device %s", ErrDuplicate, dev.ID)
		}
		return tx.Create(&deviceRow{
			ID:        dev.ID,
			SegmentID: seg.ID,
			Name:      dev.Name,
			Address:   dev.Address,
			Category:  dev.Category,
		}).Error
	})
	if err != nil {
		return model.Device{}, translate(err)
	}
	return dev, nil
}

func (s *Store) DeleteDevice(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&deviceRow{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete device %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: device %s", ErrNotFound, id)
	}
	return nil
}

// CreateRule stores rule with canonical protocol and action tokens. A zero
// priority places the rule after every existing one (highest priority + 1).
// Rules sharing a priority keep creation order.
func (s *Store) CreateRule(ctx context.Context, rule model.Rule) (model.Rule, error) {
	proto, err := model.ParseProtocol(string(rule.Protocol))
	if err != nil {
		return model.Rule{}, fmt.Errorf("%w: %w", model.ErrMalformedRequest, err)
	}
	action, err := model.ParseAction(string(rule.Action))
	if err != nil {
		return model.Rule{}, fmt.Errorf("%w: %w", model.ErrMalformedRequest, err)
	}
	rule.Protocol, rule.Action = proto, action
	if rule.ID = strings.TrimSpace(rule.ID); rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&ruleRow{}).Where("id = ?", rule.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: rule %s", ErrDuplicate, rule.ID)
		}
		var tail struct {
			Priority int
			Seq      int64
		}
		err := tx.Model(&ruleRow{}).
			Select("COALESCE(MAX(priority), 0) AS priority, COALESCE(MAX(seq), 0) AS seq").
			Scan(&tail).Error
		if err != nil {
			return err
		}
		if rule.Priority == 0 {
			rule.Priority = tail.Priority + 1
		}
		row := ruleFromModel(rule, tail.Seq+1)
		return tx.Create(&row).Error
	})
	if err != nil {
		return model.Rule{}, translate(err)
	}
	return rule, nil
}

func (s *Store) DeleteRule(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&ruleRow{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: rule %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) AppendDecision(ctx context.Context, rec *model.DecisionRecord) error {
	row := decisionFromModel(rec)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append decision %s: %w", rec.ID, translate(err))
	}
	return nil
}

// ListDecisions pages through the decision log, newest first. Pages start at 1.
func (s *Store) ListDecisions(ctx context.Context, page, size int) ([]model.DecisionRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	var total int64
	q := s.db.WithContext(ctx).Model(&decisionRow{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	var rows []decisionRow
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").Order("id DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list decisions: %w", err)
	}
	out := make([]model.DecisionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, total, nil
}

// Seed loads segments and rules into an empty store. A store that already
// holds segments is left as is and Seed reports false.
func (s *Store) Seed(ctx context.Context, segments []model.Segment, rules []model.Rule) (bool, error) {
	if err := topology.Validate(segments); err != nil {
		return false, fmt.Errorf("failed to validate seed topology: %w", err)
	}
	seeded := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&segmentRow{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, seg := range segments {
			row := segmentRow{ID: seg.ID, Number: seg.Number, Name: seg.Name, Subnet: seg.Subnet}
			for _, d := range seg.Devices {
				row.Devices = append(row.Devices, deviceRow{
					ID:       d.ID,
					Name:     d.Name,
					Address:  d.Address,
					Category: d.Category,
				})
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to seed vlan %d: %w", seg.Number, err)
			}
		}
		for i, r := range rules {
			if r.Priority == 0 {
				r.Priority = i + 1
			}
			row := ruleFromModel(r, int64(i+1))
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to seed rule %s: %w", r.ID, err)
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, translate(err)
	}
	return seeded, nil
}

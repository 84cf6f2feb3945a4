package store

import (
	"time"
	"unicode/utf8"

	"vlan-traffic-simulator/internal/model"
)

type segmentRow struct {
	ID      string      `gorm:"column:id;primaryKey;size:64"`
	Number  int         `gorm:"column:number;uniqueIndex"`
	Name    string      `gorm:"column:name;size:128"`
	Subnet  string      `gorm:"column:subnet;size:64"`
	Devices []deviceRow `gorm:"foreignKey:SegmentID;references:ID;constraint:OnDelete:CASCADE"`
}

func (segmentRow) TableName() string { return "segments" }

type deviceRow struct {
	ID        string `gorm:"column:id;primaryKey;size:64"`
	SegmentID string `gorm:"column:segment_id;index;size:64"`
	Name      string `gorm:"column:name;size:128"`
	Address   string `gorm:"column:address;size:64"`
	Category  string `gorm:"column:category;size:32"`
}

func (deviceRow) TableName() string { return "devices" }

type ruleRow struct {
	ID            string `gorm:"column:id;primaryKey;size:64"`
	SourceSegment int    `gorm:"column:source_segment"`
	DestSegment   int    `gorm:"column:dest_segment"`
	Protocol      string `gorm:"column:protocol;size:8"`
	Action        string `gorm:"column:action;size:16"`
	Description   string `gorm:"column:description;size:255"`
	Priority      int    `gorm:"column:priority;index"`
	Seq           int64  `gorm:"column:seq;index"` // creation order, breaks priority ties
}

func (ruleRow) TableName() string { return "acl_rules" }

type decisionRow struct {
	ID            string    `gorm:"column:id;primaryKey;size:64"`
	Timestamp     time.Time `gorm:"column:timestamp;index"`
	SourceDevice  string    `gorm:"column:source_device;size:255"`
	SourceSegment string    `gorm:"column:source_segment;size:32"`
	DestDevice    string    `gorm:"column:dest_device;size:255"`
	DestSegment   string    `gorm:"column:dest_segment;size:32"`
	Protocol      string    `gorm:"column:protocol;size:8"`
	Outcome       string    `gorm:"column:outcome;size:32"`
	Reason        string    `gorm:"column:reason;type:text"`
	MatchedRuleID string    `gorm:"column:matched_rule_id;size:64"`
	Inspector     string    `gorm:"column:inspector;size:32"`
}

func (decisionRow) TableName() string { return "decision_logs" }

func (r segmentRow) toModel() model.Segment {
	seg := model.Segment{ID: r.ID, Number: r.Number, Name: r.Name, Subnet: r.Subnet}
	for _, d := range r.Devices {
		seg.Devices = append(seg.Devices, d.toModel())
	}
	return seg
}

func (r deviceRow) toModel() model.Device {
	return model.Device{ID: r.ID, Name: r.Name, Address: r.Address, Category: r.Category}
}

func (r ruleRow) toModel() model.Rule {
	return model.Rule{
		ID:            r.ID,
		SourceSegment: r.SourceSegment,
		DestSegment:   r.DestSegment,
		Protocol:      model.Protocol(r.Protocol),
		Action:        model.Action(r.Action),
		Description:   r.Description,
		Priority:      r.Priority,
	}
}

func ruleFromModel(r model.Rule, seq int64) ruleRow {
	return ruleRow{
		ID:            r.ID,
		SourceSegment: r.SourceSegment,
		DestSegment:   r.DestSegment,
		Protocol:      string(r.Protocol),
		Action:        string(r.Action),
		Description:   r.Description,
		Priority:      r.Priority,
		Seq:           seq,
	}
}

func (r decisionRow) toModel() model.DecisionRecord {
	return model.DecisionRecord{
		ID:            r.ID,
		Timestamp:     r.Timestamp,
		SourceDevice:  r.SourceDevice,
		SourceSegment: r.SourceSegment,
		DestDevice:    r.DestDevice,
		DestSegment:   r.DestSegment,
		Protocol:      model.Protocol(r.Protocol),
		Outcome:       model.Outcome(r.Outcome),
		Reason:        r.Reason,
		MatchedRuleID: r.MatchedRuleID,
		Inspector:     r.Inspector,
	}
}

func decisionFromModel(rec *model.DecisionRecord) decisionRow {
	return decisionRow{
		ID:            rec.ID,
		Timestamp:     rec.Timestamp.UTC(),
		SourceDevice:  truncate(rec.SourceDevice, 255),
		SourceSegment: rec.SourceSegment,
		DestDevice:    truncate(rec.DestDevice, 255),
		DestSegment:   rec.DestSegment,
		Protocol:      string(rec.Protocol),
		Outcome:       string(rec.Outcome),
		Reason:        rec.Reason,
		MatchedRuleID: rec.MatchedRuleID,
		Inspector:     rec.Inspector,
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

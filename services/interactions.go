package services

import (
	"fmt"
	"strings"

	"health-assistant-backend/models"
)

// InteractionTable lists known adverse pairings under one medication's key
// only. Lookups must check both directions.
type InteractionTable map[string]map[string]string

var DefaultInteractionTable = InteractionTable{
	"warfarin": {
		"aspirin":   "Increased risk of bleeding",
		"ibuprofen": "Increased risk of bleeding",
		"naproxen":  "Increased risk of bleeding",
	},
	"clopidogrel": {
		"omeprazole": "Omeprazole may reduce the effectiveness of clopidogrel",
	},
	"lisinopril": {
		"ibuprofen": "NSAIDs may reduce the blood pressure lowering effect and strain the kidneys",
		"naproxen":  "NSAIDs may reduce the blood pressure lowering effect and strain the kidneys",
	},
	"sertraline": {
		"tramadol": "Increased risk of serotonin syndrome and seizures",
	},
	"fluoxetine": {
		"tramadol": "Increased risk of serotonin syndrome and seizures",
	},
	"simvastatin": {
		"amlodipine": "Higher simvastatin levels may increase the risk of muscle damage",
	},
	"metformin": {
		"prednisone": "Corticosteroids may raise blood sugar and reduce diabetes control",
	},
	"levothyroxine": {
		"omeprazole": "Reduced stomach acid may lower levothyroxine absorption",
	},
}

type InteractionChecker struct {
	table InteractionTable
}

func NewInteractionChecker(table InteractionTable) *InteractionChecker {
	if table == nil {
		table = DefaultInteractionTable
	}
	return &InteractionChecker{table: table}
}

// CheckInteractions reports every known interaction between pairs of the
// given medications.
func (ic *InteractionChecker) CheckInteractions(medications []string) models.InteractionReport {
	report := models.InteractionReport{
		Interactions: []models.Interaction{},
		Warnings:     []string{},
	}

	meds := normalizeMedications(medications)
	for i := 0; i < len(meds); i++ {
		for j := i + 1; j < len(meds); j++ {
			it, ok := ic.lookup(meds[i], meds[j])
			if !ok {
				it, ok = ic.lookup(meds[j], meds[i])
			}
			if !ok {
				continue
			}
			report.Interactions = append(report.Interactions, it)
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s + %s: %s", titleCase(it.Medication), titleCase(it.With), it.Description))
		}
	}
	return report
}

func (ic *InteractionChecker) lookup(med, with string) (models.Interaction, bool) {
	desc, ok := ic.table[med][with]
	if !ok {
		return models.Interaction{}, false
	}
	return models.Interaction{Medication: med, With: with, Description: desc}, true
}

func normalizeMedications(medications []string) []string {
	seen := make(map[string]bool, len(medications))
	out := make([]string, 0, len(medications))
	for _, m := range medications {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package core

import "strings"

// Upload kind keys.
const (
	KindUserShifts = "user_shifts"
	KindUserSkills = "user_skills"
)

func init() {
	Register(KindDefinition{
		Info: KindInfo{
			Key:      KindUserShifts,
			Label:    "User Shifts",
			Table:    "USER_SHIFTS",
			Template: "UserShiftsTemplate.xlsx",
		},
		FieldSpecs: []FieldSpec{
			{Name: "EMPLOYEE_ID", Type: FieldText, Required: true, Normalizer: strings.ToUpper},
			{Name: "SHIFT_ID", Type: FieldText, Required: true, Normalizer: strings.ToUpper},
			{Name: "SHIFT_DATE", Type: FieldDate, Required: true},
			{Name: "LINE", Type: FieldText, Required: true},
		},
	})

	Register(KindDefinition{
		Info: KindInfo{
			Key:      KindUserSkills,
			Label:    "User Skills",
			Table:    "USER_SKILLS",
			Template: "UserSkillsTemplate.xlsx",
		},
		FieldSpecs: []FieldSpec{
			{Name: "EMPLOYEE_ID", Type: FieldText, Required: true, Normalizer: strings.ToUpper},
			{Name: "SKILL_ID", Type: FieldText, Required: true},
			{Name: "STAGE", Type: FieldText, Required: true},
			{Name: "LEVEL", DBColumn: "SKILL_LEVEL", Type: FieldEnum, Required: true, EnumValues: []string{"1", "2", "3", "4"}},
		},
	})
}

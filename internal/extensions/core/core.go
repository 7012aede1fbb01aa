// Package core provides the base object model configuration that extension
// modules build on: model metadata, the core relation catalog and the default
// tree view configuration.
package core

import (
	"strings"

	"github.com/asakaida/riskmap/internal/entities"
)

// ModuleName is the catalog module name of the core configuration
const ModuleName = "ggrc_core"

// SearchRelation is the person relation listing objects found through ownership search
const SearchRelation = "related_objects_via_search"

// ObjectTypes are the governance and business object types known to the core
var ObjectTypes = []entities.TypeName{
	"AccessGroup",
	"Assessment",
	"Clause",
	"Contract",
	"Control",
	"DataAsset",
	"Facility",
	"Issue",
	"Market",
	"MultitypeSearch",
	"Objective",
	"OrgGroup",
	"Person",
	"Policy",
	"Process",
	"Product",
	"Program",
	"Project",
	"Regulation",
	"Section",
	"Standard",
	"System",
	"Vendor",
}

// model builds metadata from the singular/plural title and table names
func model(name entities.TypeName, titleSingular, titlePlural, tableSingular, tablePlural string) *entities.Model {
	return &entities.Model{
		Name:          name,
		TitleSingular: titleSingular,
		TitlePlural:   titlePlural,
		ModelPlural:   strings.ReplaceAll(titlePlural, " ", ""),
		TableSingular: tableSingular,
		TablePlural:   tablePlural,
	}
}

// Models returns the metadata of the core object types
func Models() []*entities.Model {
	return []*entities.Model{
		model("AccessGroup", "Access Group", "Access Groups", "access_group", "access_groups"),
		model("Assessment", "Assessment", "Assessments", "assessment", "assessments"),
		model("Clause", "Clause", "Clauses", "clause", "clauses"),
		model("Contract", "Contract", "Contracts", "contract", "contracts"),
		model("Control", "Control", "Controls", "control", "controls"),
		model("DataAsset", "Data Asset", "Data Assets", "data_asset", "data_assets"),
		model("Facility", "Facility", "Facilities", "facility", "facilities"),
		model("Issue", "Issue", "Issues", "issue", "issues"),
		model("Market", "Market", "Markets", "market", "markets"),
		model("MultitypeSearch", "Multitype Search", "Multitype Search", "multitype_search", "multitype_search"),
		model("Objective", "Objective", "Objectives", "objective", "objectives"),
		model("OrgGroup", "Org Group", "Org Groups", "org_group", "org_groups"),
		model("Person", "Person", "People", "person", "people"),
		model("Policy", "Policy", "Policies", "policy", "policies"),
		model("Process", "Process", "Processes", "process", "processes"),
		model("Product", "Product", "Products", "product", "products"),
		model("Program", "Program", "Programs", "program", "programs"),
		model("Project", "Project", "Projects", "project", "projects"),
		model("Regulation", "Regulation", "Regulations", "regulation", "regulations"),
		model("Section", "Section", "Sections", "section", "sections"),
		model("Standard", "Standard", "Standards", "standard", "standards"),
		model("System", "System", "Systems", "system", "systems"),
		model("Vendor", "Vendor", "Vendors", "vendor", "vendors"),
	}
}

// Definition returns the core relation catalog definition.
// Only the relations extension modules depend on are defined here.
func Definition() *entities.CatalogDefinition {
	observed := make([]entities.TypeName, 0, len(ObjectTypes))
	for _, t := range ObjectTypes {
		if t != "MultitypeSearch" && t != "Person" {
			observed = append(observed, t)
		}
	}

	return &entities.CatalogDefinition{
		Module: ModuleName,
		Types: []*entities.TypeDefinition{
			{
				Type: "Person",
				Relations: []*entities.NamedRelation{
					{
						Name: SearchRelation,
						Spec: &entities.SearchRelation{
							Expression:   `has(object.owners) && subject.id in object.owners`,
							ObserveTypes: observed,
						},
					},
				},
			},
		},
	}
}

// TreeView returns the default tree view configuration of the core object pages
func TreeView() *entities.TreeViewConfig {
	base := map[entities.TypeName][]entities.TypeName{
		"AccessGroup": {"Program", "System", "Process", "DataAsset", "Product", "Project", "Facility", "Market", "OrgGroup", "Vendor"},
		"Assessment":  {"Control", "Objective", "Issue", "Program", "Regulation", "Policy", "Standard", "Contract"},
		"Clause":      {"Contract", "Control", "Objective", "Section", "Program", "Issue"},
		"Contract":    {"Clause", "Control", "Objective", "Program", "Section", "Issue"},
		"Control":     {"Objective", "Program", "Regulation", "Policy", "Standard", "Contract", "Clause", "Section", "Issue", "Assessment"},
		"DataAsset":   {"AccessGroup", "Program", "System", "Process", "Product", "Project", "Facility", "Market", "OrgGroup", "Vendor"},
		"Facility":    {"AccessGroup", "Program", "System", "Process", "DataAsset", "Product", "Project", "Market", "OrgGroup", "Vendor"},
		"Issue":       {"Control", "Objective", "Program", "Assessment", "Regulation", "Policy", "Standard", "Contract"},
		"Market":      {"AccessGroup", "Program", "System", "Process", "DataAsset", "Product", "Project", "Facility", "OrgGroup", "Vendor"},
		"Objective":   {"Control", "Program", "Regulation", "Policy", "Standard", "Contract", "Clause", "Section", "Issue"},
		"OrgGroup":    {"AccessGroup", "Program", "System", "Process", "DataAsset", "Product", "Project", "Facility", "Market", "Vendor"},
		"Person":      {"Program", "Control", "Objective", "Issue", "Assessment"},
		"Policy":      {"Program", "Control", "Objective", "Section", "Issue"},
		"Process":     {"AccessGroup", "Program", "System", "DataAsset", "Product", "Project", "Facility", "Market", "OrgGroup", "Vendor"},
		"Product":     {"AccessGroup", "Program", "System", "Process", "DataAsset", "Project", "Facility", "Market", "OrgGroup", "Vendor"},
		"Program":     {"Regulation", "Policy", "Standard", "Contract", "Objective", "Control", "System", "Process", "Issue", "Assessment"},
		"Project":     {"AccessGroup", "Program", "System", "Process", "DataAsset", "Product", "Facility", "Market", "OrgGroup", "Vendor"},
		"Regulation":  {"Program", "Section", "Objective", "Control", "Issue"},
		"Section":     {"Program", "Regulation", "Policy", "Standard", "Objective", "Control", "Issue"},
		"Standard":    {"Program", "Section", "Objective", "Control", "Issue"},
		"System":      {"AccessGroup", "Program", "Process", "DataAsset", "Product", "Project", "Facility", "Market", "OrgGroup", "Vendor"},
		"Vendor":      {"AccessGroup", "Program", "System", "Process", "DataAsset", "Product", "Project", "Facility", "Market", "OrgGroup"},
	}

	basic := make([]entities.BasicModel, 0, len(ObjectTypes))
	registry := entities.NewModelRegistry(Models()...)
	for _, t := range ObjectTypes {
		if t == "MultitypeSearch" {
			continue
		}
		basic = append(basic, entities.BasicModel{ModelName: t, DisplayName: registry.Get(t).TitleSingular})
	}

	subTrees := map[entities.TypeName]*entities.SubTree{
		"Program": {DisplayList: []entities.TypeName{"Regulation", "Policy", "Standard", "Contract", "Control", "Objective"}},
		"Control": {DisplayList: []entities.TypeName{"Objective", "Issue"}},
	}

	return &entities.TreeViewConfig{
		BaseWidgetsByType: base,
		BasicModelList:    basic,
		SubTreeFor:        subTrees,
	}
}

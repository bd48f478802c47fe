package inventory

import (
	"context"

	"equipment_loan_tool/models"
)

// InitialMaterials 空库时的初始物资
func InitialMaterials() []models.Material {
	base := func(name, category, location string, qty int) models.Material {
		return models.Material{
			Name:      name,
			Category:  category,
			Location:  location,
			Status:    models.StatusAvailable,
			Condition: models.ConditionGood,
			Quantity:  qty,
		}
	}
	pc := base("PC Bureau", "Informatique", "Bordeaux", 1)
	pc.Brand = "ASUS"
	pc.Model = "Intel"
	pc.SerialNumber = "xx11a871"
	pc.Reference = "001_24"
	pc.Responsible = "Toto"
	pc.Observations = "Avec wifi"

	return []models.Material{
		base("Chrono à Bande", "Eau Libre", "Limoges", 1),
		base("Bouées Directionnelles", "Eau Libre", "Limoges", 6),
		base("Talkies Walkies", "Eau Libre", "Limoges", 12),
		pc,
	}
}

// Seed 台账为空时写入初始物资，返回写入条数
func Seed(ctx context.Context, reg *Registry) int {
	if reg.Len() > 0 {
		return 0
	}
	ms := InitialMaterials()
	for _, m := range ms {
		reg.Add(ctx, m)
	}
	return len(ms)
}

package protocol

// Medications is the fixed, ordered medication list the wheel sectors index
// into. The order mirrors the broadcaster's fiducial-ID assignment (IDs 2-11)
// and must stay stable for the lifetime of the process: sector numbers on the
// wire are positions in this slice.
var Medications = []string{
	"Paracetamol",
	"Amoxicillin",
	"Aspirin",
	"Metformin",
	"Lisinopril",
	"Atorvastatin",
	"Omeprazole",
	"Salbutamol",
	"Ibuprofen",
	"Vitamin D",
}

// NumSectors is the number of wheel sectors.
func NumSectors() int { return len(Medications) }

// MedicationForSector returns the medication name for a sector index, or ""
// when the sector is out of range (including the "no sector" value -1).
func MedicationForSector(sector int) string {
	if sector < 0 || sector >= len(Medications) {
		return ""
	}
	return Medications[sector]
}

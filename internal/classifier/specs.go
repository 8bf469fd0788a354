package classifier

import "regexp"

// The spec-extraction regex table (§6.2), matched against lowercased text.
// Each entry yields one key in the returned spec map. Kept bit-exact
// against the documented patterns; electronics/books tables follow the
// same capture-group shape.
var (
	generalTypePickup   = regexp.MustCompile(`帮忙取|代取|领取|取一下`)
	generalTypePurchase = regexp.MustCompile(`代买|帮买|购买|买一下`)
	generalTypeDelivery = regexp.MustCompile(`帮送|投递|送达|送一下`)
	generalTypeErrand   = regexp.MustCompile(`跑腿|帮忙`)

	itemTextRe     = regexp.MustCompile(`(外卖|快递|文件|奶茶|食物|作业|书|钥匙|雨伞)`)
	quantityTextRe = regexp.MustCompile(`([一二三四五六七八九十\d]+)\s*(个|件|份|单|本书|箱|袋|样)`)
	sizeTextRe     = regexp.MustCompile(`(大|小|中|重)号?(箱子|包裹|文件|东西|有点重|不重)?`)
	weightTextRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(kg|公斤|斤|克|g)`)
	urgencyTextRe  = regexp.MustCompile(`尽快|马上|急|越快越好`)
	fragileRe      = regexp.MustCompile(`易碎|小心轻放|怕摔`)
	temperatureRe  = regexp.MustCompile(`保暖|冷藏|加热`)

	electronicsStorageRe    = regexp.MustCompile(`(\d+)\s*(gb|tb)\s*(storage|硬盘|存储)?`)
	electronicsRAMRe        = regexp.MustCompile(`(\d+)\s*gb\s*ram`)
	electronicsScreenSizeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:寸|inch|")`)
	electronicsCPURe        = regexp.MustCompile(`(i3|i5|i7|i9|ryzen\s*\d|snapdragon\s*\d+|m1|m2|m3)`)

	booksSubjectRe = regexp.MustCompile(`(高等数学|线性代数|英语|计算机基础|概率论)`)
	booksEditionRe = regexp.MustCompile(`第([一二三四五六七八九十]+)版`)
)

// extractErrandSpecs applies the errand spec-extraction table (§6.2) to
// lowercased text and returns only the keys that matched.
func extractErrandSpecs(lower string) map[string]any {
	specs := map[string]any{}

	switch {
	case generalTypePickup.MatchString(lower):
		specs["general_type_text"] = "pickup"
	case generalTypePurchase.MatchString(lower):
		specs["general_type_text"] = "purchase"
	case generalTypeDelivery.MatchString(lower):
		specs["general_type_text"] = "delivery"
	case generalTypeErrand.MatchString(lower):
		specs["general_type_text"] = "general_errand"
	}

	if m := itemTextRe.FindStringSubmatch(lower); m != nil {
		specs["item_text"] = m[1]
	}
	if m := quantityTextRe.FindStringSubmatch(lower); m != nil {
		specs["quantity_text"] = m[0]
	}
	if m := sizeTextRe.FindStringSubmatch(lower); m != nil {
		specs["size_text"] = m[0]
	}
	if m := weightTextRe.FindStringSubmatch(lower); m != nil {
		specs["weight_text"] = m[0]
	}
	if urgencyTextRe.MatchString(lower) {
		specs["urgency_text"] = "urgent"
	}
	switch {
	case fragileRe.MatchString(lower):
		specs["handling_text"] = "fragile"
	case temperatureRe.MatchString(lower):
		specs["handling_text"] = "temperature_sensitive"
	}

	return specs
}

// extractElectronicsSpecs applies the Electronics capture table (§6.2).
func extractElectronicsSpecs(lower string) map[string]any {
	specs := map[string]any{}
	if m := electronicsStorageRe.FindStringSubmatch(lower); m != nil {
		specs["storage"] = m[1] + m[2]
	}
	if m := electronicsRAMRe.FindStringSubmatch(lower); m != nil {
		specs["ram"] = m[1] + "gb"
	}
	if m := electronicsScreenSizeRe.FindStringSubmatch(lower); m != nil {
		specs["screen_size"] = m[1]
	}
	if m := electronicsCPURe.FindStringSubmatch(lower); m != nil {
		specs["cpu"] = m[1]
	}
	return specs
}

// extractBooksSpecs applies the Books capture table (§6.2).
func extractBooksSpecs(lower string) map[string]any {
	specs := map[string]any{}
	if m := booksSubjectRe.FindStringSubmatch(lower); m != nil {
		specs["subject"] = m[1]
	}
	if m := booksEditionRe.FindStringSubmatch(lower); m != nil {
		specs["edition"] = m[1]
	}
	return specs
}

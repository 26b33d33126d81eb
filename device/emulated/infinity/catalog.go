package infinity

import (
	"fmt"
	"strings"
)

// Category is the kind of figure a catalog entry describes.
type Category uint8

// Figure categories.
const (
	Character Category = iota
	PlaySet
	Ability
	PowerDisc
)

// String returns the display name of the category.
func (c Category) String() string {
	switch c {
	case Character:
		return "Character"
	case PlaySet:
		return "Play Set"
	case Ability:
		return "Ability"
	case PowerDisc:
		return "Power Disc"
	default:
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
}

// code returns the category byte stored in figure metadata.
func (c Category) code() byte {
	switch c {
	case Character:
		return 0x0F
	case PlaySet:
		return 0x1E
	case Ability:
		return 0x2D
	default:
		return 0x3D
	}
}

// date returns the three metadata bytes written when an entry has no
// variant code.
func (c Category) date() [3]byte {
	switch c {
	case Character:
		return [3]byte{0x10, 0x0C, 0x1E}
	case PlaySet:
		return [3]byte{0x11, 0x04, 0x06}
	case Ability:
		return [3]byte{0x11, 0x04, 0x16}
	default:
		return [3]byte{0x12, 0x0A, 0x15}
	}
}

// categoryFromCode maps a metadata category byte back to its Category.
func categoryFromCode(b byte) (Category, bool) {
	for _, c := range []Category{Character, PlaySet, Ability, PowerDisc} {
		if c.code() == b {
			return c, true
		}
	}
	return 0, false
}

// Entry is one figure in the catalog.
type Entry struct {
	Name     string
	Category Category
	UID      uint64 // 56-bit tag id
	Number   uint16 // numeric id stored in metadata
	Variant  uint32 // 0 if none
}

// UIDBytes returns the tag id as 7 big-endian bytes.
func (e *Entry) UIDBytes() [UIDSize]byte {
	var uid [UIDSize]byte
	for i := 0; i < UIDSize; i++ {
		uid[i] = byte(e.UID >> (8 * (UIDSize - 1 - i)))
	}
	return uid
}

// FindByNumber returns the name of the first entry with the given numeric
// id. Returns false if no entry matches.
func FindByNumber(number uint16) (string, bool) {
	if e := lookupNumber(number); e != nil {
		return e.Name, true
	}
	return "", false
}

// FindByName returns the first entry with the given display name.
func FindByName(name string) (Entry, bool) {
	for i := range catalog {
		if catalog[i].Name == name {
			return catalog[i], true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the catalog in table order.
func Entries() []Entry {
	return append([]Entry(nil), catalog...)
}

// Search returns the entries whose name contains filter, ignoring case.
// An empty filter matches everything.
func Search(filter string) []Entry {
	if filter == "" {
		return Entries()
	}
	filter = strings.ToLower(filter)
	var out []Entry
	for _, e := range catalog {
		if strings.Contains(strings.ToLower(e.Name), filter) {
			out = append(out, e)
		}
	}
	return out
}

func lookupNumber(number uint16) *Entry {
	for i := range catalog {
		if catalog[i].Number == number {
			return &catalog[i]
		}
	}
	return nil
}

var catalog = []Entry{
	{"The Incredibles - Syndrome", Character, 0x04017E90EE8780, 0x424F, 0},
	{"Phineas and Ferb - Agent P (Crystal)", Character, 0x04FF27061AB980, 0x4264, 0},
	{"Cars - Francesco Bernoulli", Character, 0x04D6AB74B0E280, 0x4254, 0},
	{"Wreck-It Ralph - Vanellope von Schweetz", Character, 0x045AE822366080, 0x425D, 0},
	{"Cars - Lightning McQueen", Character, 0x04187969568480, 0x4246, 0},
	{"Monsters University - Mike Wazowski", Character, 0x0440D8140A1D80, 0x424A, 0},
	{"Pirates of the Caribbean - Davy Jones", Character, 0x04E75CC081E480, 0x424D, 0},
	{"Pirates of the Caribbean - Barbossa", Character, 0x04964B82095E80, 0x424C, 0},
	{"Frozen - Elsa", Character, 0x0402533A123A81, 0x4259, 0x0F0118},
	{"Cars - Mater", Character, 0x046920E5C5CC80, 0x4251, 0},
	{"Toy Story - Buzz Lightyear", Character, 0x04ED48643A2980, 0x4248, 0},
	{"Phineas and Ferb - Agent P", Character, 0x04E940C21C1D80, 0x425B, 0},
	{"Pirates of the Caribbean - Jack Sparrow", Character, 0x042EDB421E3180, 0x4243, 0x0D0718},
	{"The Incredibles - Dash", Character, 0x0417900B57E580, 0x4252, 0},
	{"Cars - Holley Shiftwell", Character, 0x04E1FC1A21DB80, 0x4247, 0},
	{"Monsters University - Randy", Character, 0x04B05152571E80, 0x424E, 0},
	{"The Nightmare Before Christmas - Jack Skellington", Character, 0x04A2904981E280, 0x4256, 0},
	{"Fantasia - Sorcerer's Apprentice Mickey", Character, 0x04201BA63FBB80, 0x4255, 0},
	{"Tangled - Rapunzel", Character, 0x04365733977580, 0x4257, 0},
	{"The Incredibles - Mr. Incredible (Crystal)", Character, 0x04C7189774C380, 0x425E, 0},
	{"The Incredibles - Mrs. Incredible", Character, 0x04C817E8AC6780, 0x424B, 0},
	{"Fantasia - Sorcerer's Apprentice Mickey (Crystal)", Character, 0x041F8BFC7EA680, 0x4265, 0},
	{"Phineas and Ferb - Phineas Flynn", Character, 0x04FA154FF53480, 0x425A, 0},
	{"Toy Story - Woody", Character, 0x048144A1CBFB80, 0x4250, 0},
	{"Wreck-It Ralph - Wreck-It Ralph", Character, 0x0465ADFF79E780, 0x425C, 0},
	{"Cars - Lightning McQueen (Crystal)", Character, 0x04B5C30C450E80, 0x4261, 0},
	{"The Lone Ranger - Tonto", Character, 0x0494F1DB8BE480, 0x4245, 0},
	{"The Incredibles - Mr. Incredible", Character, 0x04217572332D81, 0x4241, 0x0D0814},
	{"Frozen - Anna", Character, 0x045DC52A133A80, 0x4258, 0x0F0112},
	{"Pirates of the Caribbean - Jack Sparrow (Crystal)", Character, 0x041F537AF23580, 0x425F, 0},
	{"Toy Story - Buzz Lightyear (Crystal)", Character, 0x04F403F3B8DA80, 0x4263, 0},
	{"Toy Story - Jessie", Character, 0x04934414EACB80, 0x4249, 0},
	{"Monsters University - Sulley (Crystal)", Character, 0x04E7F5A82C3680, 0x4260, 0},
	{"Monsters University - Sulley", Character, 0x04DE4D8AE52B80, 0x4242, 0x0D0816},
	{"The Lone Ranger - The Lone Ranger (Crystal)", Character, 0x040DD3604A4C80, 0x4262, 0},
	{"The Lone Ranger - The Lone Ranger", Character, 0x04248FEC2BD580, 0x4244, 0},
	{"The Incredibles - Violet", Character, 0x04AB14EDD7A880, 0x4253, 0},
	{"Toy Story in Space Play Set", PlaySet, 0x049751B19CA580, 0x8484, 0},
	{"Cars Play Set", PlaySet, 0x04BE68751FDF80, 0x8483, 0},
	{"The Incredibles - Pirates of the Caribbean - Monsters University Play Set", PlaySet, 0x04EDEAADA4AB80, 0x8481, 0},
	{"The Lone Ranger Play Set", PlaySet, 0x0454612DA49D80, 0x8482, 0},
	{"Tangled - Rapunzel's Kingdom - Customization (Terrain)", PowerDisc, 0x04AF582071B280, 0x0934, 0},
	{"Cars - C.H.R.O.M.E. Armor Shield - Ability", Ability, 0x04C6F0F3951B80, 0xC6CB, 0},
	{"Mulan - Khan - Toy (Mount)", PowerDisc, 0x04E0B7BFAFB580, 0x0922, 0},
	{"Wreck-It Ralph - Fix-It Felix's Repair Power - Ability", Ability, 0x04F568D23B3A80, 0xC6C9, 0},
	{"Dumbo, Disney Parks - Dumbo the Flying Elephant - Toy (Aircraft)", PowerDisc, 0x04E5837915F580, 0x091B, 0},
	{"Up - Carl Fredricksen's Cane - Toy (Weapon)", PowerDisc, 0x043D1F3A999880, 0x0928, 0},
	{"Finding Nemo - Nemo's Seascape - Customization (Skydome)", PowerDisc, 0x04689F03704C80, 0x0942, 0},
	{"Alice in Wonderland - Tulgey Wood - Customization (Skydome)", PowerDisc, 0x04B6B7DA2D7580, 0x0944, 0},
	{"Cinderella - Cinderella's Coach - Toy (Vehicle)", PowerDisc, 0x0436BD6041F680, 0x0913, 0},
	{"Pirates of the Caribbean - Pieces of Eight - Ability", Ability, 0x04AB1BFE70BC80, 0xC6CE, 0},
	{"Wreck-It Ralph - Sugar Rush Sky - Customization (Skydome)", PowerDisc, 0x0412F1FC149080, 0x0937, 0},
	{"Aladdin - Abu the Elephant - Toy (Mount)", PowerDisc, 0x0434105041CF80, 0x091F, 0},
	{"Wreck-It Ralph - King Candy's Dessert Toppings - Customization (Terrain)", PowerDisc, 0x046AD2D48CDA80, 0x092E, 0},
	{"Alice in Wonderland - Alice's Wonderland - Customization (Terrain)", PowerDisc, 0x042052EA06B780, 0x0943, 0},
	{"Bolt - Bolt's Super Strength - Ability", Ability, 0x04CA5F35256C80, 0xC6C3, 0x110408},
	{"Mickey Mouse Universe - Mickey's Car - Toy (Vehicle)", PowerDisc, 0x0409934667C480, 0x0912, 0},
	{"Lilo & Stitch - Stitch's Blaster - Toy (Weapon)", PowerDisc, 0x04E88D90DD6980, 0x0925, 0},
	{"Toy Story, Disney Parks - Astro Blasters Space Cruiser - Toy (Vehicle)", PowerDisc, 0x0406481EF6D280, 0x0940, 0},
	{"Tangled - Rapunzel's Birthday Sky - Customization (Skydome)", PowerDisc, 0x04D8994DBC8180, 0x093D, 0},
	{"Finding Nemo - Marlin's Reef - Customization (Terrain)", PowerDisc, 0x0466486D0FA580, 0x0941, 0},
	{"The Adventures of Ichabod and Mr. Toad - Headless Horseman's Horse - Toy (Mount)", PowerDisc, 0x045E162AA6B780, 0x0920, 0},
	{"Lilo & Stitch - Hangin' Ten Stitch With Surfboard - Toy (Hoverboard)", PowerDisc, 0x04E41F923E2D80, 0x0929, 0x0D0917},
	{"Phineas and Ferb - Dr. Doofenshmirtz's Damage-Inator! - Ability", Ability, 0x0437E41B6D8080, 0xC6C7, 0x110408},
	{"The Nightmare Before Christmas - Jack's Scary Decorations - Customization (Terrain)", PowerDisc, 0x04D21B071CC280, 0x0931, 0},
	{"Frozen - Chill in the Air - Customization (Skydome)", PowerDisc, 0x04DE9A92938280, 0x093C, 0},
	{"The Muppets - Electric Mayhem Bus - Toy (Vehicle)", PowerDisc, 0x042891652FB480, 0x0914, 0},
	{"Alice in Wonderland - Flamingo Croquet Mallet - Toy (Weapon)", PowerDisc, 0x04D6AC9741F580, 0x0927, 0},
	{"Wreck-it Ralph - Ralph's Power of Destruction - Ability", Ability, 0x047D5840913080, 0xC6C4, 0x110408},
	{"Frankenweenie - New Holland Sky - Customization (Skydome)", PowerDisc, 0x04A4689F611780, 0x0939, 0},
	{"Toy Story - Pizza Planet Delivery Truck - Toy (Vehicle)", PowerDisc, 0x04B61B64CFAA80, 0x0916, 0},
	{"Toy Story - Star Command Shield - Ability", Ability, 0x04F37B8EC29080, 0xC6CC, 0},
	{"TRON - User Control Disc - Ability", Ability, 0x043388DA0E2D81, 0xC6D0, 0x0D0918},
	{"The Nightmare Before Christmas - Halloween Town Sky - Customization (Skydome)", PowerDisc, 0x04F1C3A0BE3980, 0x093A, 0},
	{"Frankenweenie - Electro-Charge - Ability", Ability, 0x049626916D3680, 0xC6C8, 0},
	{"Condorman - Condorman Glider - Toy (Glider)", PowerDisc, 0x04F630F0D47180, 0x092A, 0},
	{"Frozen - Frozen Flourish - Customization (Terrain)", PowerDisc, 0x0435BD19DC0280, 0x0933, 0},
	{"Frankenweenie - Victor's Experiments - Customization (Terrain)", PowerDisc, 0x045E31515A7780, 0x0930, 0},
	{"Peter Pan, Disney Parks - Jolly Roger - Toy (Aircraft)", PowerDisc, 0x04418544137380, 0x091A, 0},
	{"Tangled - Maximus - Toy (Mount)", PowerDisc, 0x048A082F480380, 0x091D, 0},
	{"Monsters, Inc. - Mike's New Car - Toy (Vehicle)", PowerDisc, 0x0451FD2C79B480, 0x0917, 0},
	{"Tangled - Rapunzel's Healing - Ability", Ability, 0x04B5B790D44D80, 0xC6CA, 0},
	{"Phineas and Ferb - Danville Sky - Customization (Skydome)", PowerDisc, 0x041D97ED0CF980, 0x0946, 0},
	{"Tarzan - Tantor - Toy (Mount)", PowerDisc, 0x048BA366E63880, 0x0923, 0},
	{"WALL-E - WALL-E's Collection - Customization (Terrain)", PowerDisc, 0x04D3B55F9DA480, 0x092D, 0},
	{"Brave - Angus - Toy (Mount)", PowerDisc, 0x045FC0BE540C80, 0x091E, 0},
	{"Mulan - Dragon Firework Cannon - Toy (Weapon)", PowerDisc, 0x0434E286410780, 0x0924, 0},
	{"The Incredibles - Violet's Force Field - Ability", Ability, 0x0404D5C675D580, 0xC6CD, 0},
	{"Fantasia - Chernabog's Power - Ability", Ability, 0x04E870C141D680, 0xC6C5, 0x110408},
	{"Disney Parks - Disney Parks Parking Lot Tram - Toy (Vehicle)", PowerDisc, 0x0429CA8CC25F80, 0x0919, 0},
	{"Phineas and Ferb - Tri-State Area Terrain - Customization (Terrain)", PowerDisc, 0x04587573AECC80, 0x0945, 0},
	{"Bolt - Calico Helicopter - Toy (Aircraft)", PowerDisc, 0x04A74878DD4280, 0x091C, 0},
	{"101 Dalmatians - Cruella De Vil's Car - Toy (Vehicle)", PowerDisc, 0x045E836CD59B80, 0x0915, 0},
	{"Beauty and the Beast - Phillipe - Toy (Mount)", PowerDisc, 0x047A8A5205F980, 0x0921, 0},
	{"WALL-E - WALL-E's Fire Extinguisher - Toy (Jetpack)", PowerDisc, 0x042E0D9C991280, 0x092B, 0},
	{"Toy Story, Disney Parks - Toy Story Mania Blaster - Toy (Weapon)", PowerDisc, 0x044EF20E179580, 0x0926, 0},
	{"WALL-E - Buy N Large Atmosphere - Customization (Skydome)", PowerDisc, 0x040D5BC57AB380, 0x0936, 0},
	{"Fantasia - Mickey's Sorcerer Hat - Ability", Ability, 0x040380FBAA6B80, 0xC6D1, 0},
	{"Lilo & Stitch - Hangin' Ten Stitch With Surfboard - Toy (Hoverboard)", PowerDisc, 0x04EBA4AB323680, 0x0929, 0},
	{"Cars - C.H.R.O.M.E. Damage Increaser - Ability", Ability, 0x0453E7A1816E80, 0xC6C6, 0x110408},
	{"The Sword in the Stone - Merlin's Summon - Ability", Ability, 0x04B91CABC84980, 0xC6FF, 0},
	{"DuckTales - Scrooge McDuck's Lucky Dime - Ability", Ability, 0x04797E75273B80, 0xC6CF, 0},
	{"TRON - On the Grid - Customization (Terrain)", PowerDisc, 0x04D6B30E55ED80, 0x092C, 0},
	{"TRON - User Control - Ability", Ability, 0x041C385D2CF480, 0xC6D0, 0},
	{"TRON - TRON Interface - Customization (Skydome)", PowerDisc, 0x04B6A8B0334580, 0x0935, 0},
	{"Toy Story - Emperor Zurg's Wrath - Ability", Ability, 0x04E89DA48E8080, 0xC6FE, 0},
}

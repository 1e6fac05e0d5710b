package maze

// DefaultTemplate is the built-in 8x30 maze layout used when no
// configuration template path is supplied.
var DefaultTemplate = []string{
	"##############################",
	"#        #         #         #",
	"#  ####  #  #####  #  #####  #",
	"#     #     #   #     #      #",
	"#  #  #######  ##  #######  ##",
	"#  #                 #       #",
	"#  ###############   #######  ",
	"#                             ",
}
